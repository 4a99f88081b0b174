package middleware

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/crewhub-api/internal/utils"
)

// Locals populated for authenticated requests.
const (
	LocalUserID   = "user_id"
	LocalUserRole = "user_role"
)

var errMissingSubject = errors.New("token subject missing")

// session is what the platform's session provider asserts about the caller.
type session struct {
	UserID uint
	Role   string
}

// JWTProtected validates HMAC-signed session tokens and stores the caller in Locals.
// EventSource and browser WebSocket clients cannot set headers, so an access_token query
// value is accepted in place of the Authorization header.
func JWTProtected(secret string) fiber.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	key := []byte(secret)

	return func(c *fiber.Ctx) error {
		raw, problem := tokenFromRequest(c)
		if raw == "" {
			return unauthorized(c, problem)
		}

		claims := jwt.MapClaims{}
		token, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		})
		if err != nil || !token.Valid {
			return unauthorized(c, "invalid token")
		}

		current, err := sessionFromClaims(claims)
		if err != nil {
			return unauthorized(c, err.Error())
		}

		c.Locals(LocalUserID, current.UserID)
		if current.Role != "" {
			c.Locals(LocalUserRole, current.Role)
		}
		return c.Next()
	}
}

func tokenFromRequest(c *fiber.Ctx) (string, string) {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if header == "" {
		if token := strings.TrimSpace(c.Query("access_token")); token != "" {
			return token, ""
		}
		return "", "authorization header missing"
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", "invalid authorization header"
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", "invalid token"
	}
	return token, ""
}

func unauthorized(c *fiber.Ctx, message string) error {
	return utils.SendErrorWithCode(c, fiber.StatusUnauthorized, "unauthorized", message, nil)
}

// sessionFromClaims reads the subject from sub, user_id or id (numeric or decimal string)
// and the role from role or the first entry of roles.
func sessionFromClaims(claims jwt.MapClaims) (session, error) {
	var current session
	for _, key := range []string{"sub", "user_id", "id"} {
		if id, ok := subjectValue(claims[key]); ok {
			current.UserID = id
			break
		}
	}
	if current.UserID == 0 {
		return session{}, errMissingSubject
	}

	for _, key := range []string{"role", "roles"} {
		if role := roleValue(claims[key]); role != "" {
			current.Role = role
			break
		}
	}
	return current, nil
}

func subjectValue(value interface{}) (uint, bool) {
	switch v := value.(type) {
	case float64:
		if v <= 0 || v != math.Trunc(v) {
			return 0, false
		}
		return uint(v), true
	case string:
		parsed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil || parsed == 0 {
			return 0, false
		}
		return uint(parsed), true
	default:
		return 0, false
	}
}

func roleValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return normalizeRole(v)
	case []interface{}:
		for _, item := range v {
			if role := normalizeRole(fmt.Sprint(item)); role != "" {
				return role
			}
		}
	}
	return ""
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
