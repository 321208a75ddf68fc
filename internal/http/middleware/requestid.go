package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"

	"itemdocs/internal/logging"
)

const (
	// RequestIDHeader carries the request id in and out.
	RequestIDHeader = "X-Request-ID"
	// RequestIDLocalKey is where handlers find the id in fiber locals.
	RequestIDLocalKey = "request_id"
)

// RequestID tags the request with the caller's X-Request-ID, or a fresh
// UUID when none was sent. Error bodies read the id from locals; service and
// repository logs pick it up from the user context. The id is copied out of
// fiber's request buffer because the context may outlive the request.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := utils.CopyString(c.Get(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals(RequestIDLocalKey, id)
		c.SetUserContext(logging.ContextWithRequestID(c.UserContext(), id))
		c.Set(RequestIDHeader, id)

		return c.Next()
	}
}
