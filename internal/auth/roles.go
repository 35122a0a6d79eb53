package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nxdesk/sla-service/internal/domain"
	apperrors "github.com/nxdesk/sla-service/pkg/util/errorutil"
)

// RequireSubject ensures the principal is one of the allowed subject types.
func RequireSubject(allowed ...domain.SubjectType) fiber.Handler {
	allowedSet := make(map[domain.SubjectType]struct{}, len(allowed))
	for _, subject := range allowed {
		allowedSet[subject] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.SubjectType]; !exists {
			return apperrors.NewForbidden("subject not permitted")
		}
		return c.Next()
	}
}
