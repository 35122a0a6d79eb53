package service

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/nxdesk/sla-service/internal/auth"
	"github.com/nxdesk/sla-service/internal/config"
	"github.com/nxdesk/sla-service/internal/domain"
	apperrors "github.com/nxdesk/sla-service/pkg/util/errorutil"
)

// AuthService issues access tokens to the configured UI client.
type AuthService struct {
	tokenMgr   *auth.TokenManager
	clientID   string
	secretHash string
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig) *AuthService {
	return &AuthService{
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		clientID:   cfg.ClientID,
		secretHash: cfg.ClientSecretHash,
	}
}

// IssueToken exchanges client credentials for a CLIENT token.
func (s *AuthService) IssueToken(_ context.Context, clientID, clientSecret string) (domain.Token, string, error) {
	if strings.TrimSpace(s.secretHash) == "" {
		return domain.Token{}, "", apperrors.NewUnauthorized("client credentials not configured")
	}
	if subtle.ConstantTimeCompare([]byte(clientID), []byte(s.clientID)) != 1 {
		return domain.Token{}, "", apperrors.NewUnauthorized("invalid credentials")
	}
	if err := auth.CompareSecret(s.secretHash, clientSecret); err != nil {
		return domain.Token{}, "", apperrors.NewUnauthorized("invalid credentials")
	}
	meta, token, err := s.tokenMgr.GenerateToken(clientID, domain.SubjectTypeClient)
	if err != nil {
		return domain.Token{}, "", apperrors.NewInternalError(err)
	}
	return meta, token, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
