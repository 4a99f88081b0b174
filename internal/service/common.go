package service

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"

	"github.com/noah-isme/crewhub-api/internal/models"
	"github.com/noah-isme/crewhub-api/pkg/apperror"
)

// Actor is the authenticated caller, as resolved from the session token.
type Actor struct {
	ID   uint
	Role models.Role
}

// NewActor normalises a raw role claim.
func NewActor(id uint, role string) Actor {
	return Actor{ID: id, Role: models.Role(strings.ToLower(strings.TrimSpace(role)))}
}

// IsAdministrator reports whether the caller holds the moderation override.
func (a Actor) IsAdministrator() bool {
	return a.Role.IsAdministrator()
}

func translateNotFound(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(message)
	}
	return err
}

func validationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return apperror.Wrap(apperror.ErrValidation, "invalid payload", err)
	}
	return err
}

// sanitizeBody strips unsafe markup from user supplied text. An empty result is rejected.
func sanitizeBody(policy *bluemonday.Policy, raw string) (string, error) {
	clean := strings.TrimSpace(policy.Sanitize(raw))
	if clean == "" {
		return "", apperror.Validation("content is empty")
	}
	return clean, nil
}

func uniqueRecipients(actorID uint, recipients []uint) []uint {
	seen := make(map[uint]struct{}, len(recipients))
	out := make([]uint, 0, len(recipients))
	for _, id := range recipients {
		if id == 0 || id == actorID {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func excerpt(text string, limit int) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit]) + "…"
}
