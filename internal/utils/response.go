package utils

import "github.com/gofiber/fiber/v2"

// APIResponse is the envelope every endpoint answers with. Code is a machine readable error
// kind; Details carries data the client needs to recover, such as unsent message content.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

var statusCodes = map[int]string{
	fiber.StatusBadRequest:          "validation_error",
	fiber.StatusUnauthorized:        "unauthorized",
	fiber.StatusForbidden:           "forbidden",
	fiber.StatusNotFound:            "not_found",
	fiber.StatusConflict:            "conflict",
	fiber.StatusTooManyRequests:     "rate_limited",
	fiber.StatusInternalServerError: "internal_error",
	fiber.StatusServiceUnavailable:  "unavailable",
}

// SendSuccess answers 200 with data.
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	return SendSuccessWithStatus(c, fiber.StatusOK, message, data)
}

// SendSuccessWithStatus answers with a success envelope and the given status, 200 when zero.
func SendSuccessWithStatus(c *fiber.Ctx, status int, message string, data interface{}) error {
	if status == 0 {
		status = fiber.StatusOK
	}
	return write(c, status, APIResponse{Success: true, Data: data, Message: orDefault(message, "success")})
}

// OK answers 200 with data and list metadata such as pagination.
func OK(c *fiber.Ctx, data interface{}, message string, meta interface{}) error {
	return write(c, fiber.StatusOK, APIResponse{Success: true, Data: data, Message: orDefault(message, "success"), Meta: meta})
}

// Fail answers with an error envelope whose code is derived from status.
func Fail(c *fiber.Ctx, status int, message string, details interface{}) error {
	return SendErrorWithCode(c, status, "", message, details)
}

// SendErrorWithCode answers with an error envelope. An empty code falls back to the
// conventional code for status.
func SendErrorWithCode(c *fiber.Ctx, status int, code, message string, details interface{}) error {
	if code == "" {
		code = statusCodes[status]
	}
	return write(c, status, APIResponse{Message: orDefault(message, "error"), Code: code, Details: details})
}

func write(c *fiber.Ctx, status int, body APIResponse) error {
	return c.Status(status).JSON(body)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
