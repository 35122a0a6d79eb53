package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nxdesk/sla-service/internal/api/dto"
	"github.com/nxdesk/sla-service/internal/service"
	apperrors "github.com/nxdesk/sla-service/pkg/util/errorutil"
)

// AuthHandler issues access tokens.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{service: authService}
}

// IssueToken POST /auth/token.
func (h *AuthHandler) IssueToken(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ClientID == "" || req.ClientSecret == "" {
		return apperrors.NewValidationError("client_id and client_secret required", nil)
	}

	meta, token, err := h.service.IssueToken(c.UserContext(), req.ClientID, req.ClientSecret)
	if err != nil {
		return err
	}
	return c.JSON(dto.Envelope[dto.TokenResponse]{Data: dto.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   meta.ExpiresAt,
	}})
}
