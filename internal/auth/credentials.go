package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/nxdesk/sla-service/internal/domain"
)

// ErrNoCredential is returned when a provider has no token to offer.
var ErrNoCredential = errors.New("auth: no credential")

// Provider yields the bearer token for outbound backend calls.
type Provider interface {
	Token(ctx context.Context) (string, error)
}

// StaticCredentials always returns the configured token.
type StaticCredentials string

// Token implements Provider.
func (s StaticCredentials) Token(context.Context) (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", ErrNoCredential
	}
	return string(s), nil
}

// BearerCredentials forwards the token the caller presented to us.
type BearerCredentials string

// Token implements Provider.
func (b BearerCredentials) Token(context.Context) (string, error) {
	if strings.TrimSpace(string(b)) == "" {
		return "", ErrNoCredential
	}
	return string(b), nil
}

// ChainCredentials returns the first token any provider yields.
type ChainCredentials []Provider

// Token implements Provider.
func (c ChainCredentials) Token(ctx context.Context) (string, error) {
	var errs []error
	for _, provider := range c {
		if provider == nil {
			continue
		}
		token, err := provider.Token(ctx)
		if err == nil && token != "" {
			return token, nil
		}
		if err != nil && !errors.Is(err, ErrNoCredential) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return "", errors.Join(append([]error{ErrNoCredential}, errs...)...)
	}
	return "", ErrNoCredential
}

// ServiceCredentials mints SERVICE tokens with a shared signing secret and
// reuses each one until it is close to expiry.
type ServiceCredentials struct {
	tokens    *TokenManager
	subjectID string

	mu      sync.Mutex
	cached  string
	expires time.Time
}

// NewServiceCredentials builds a minting provider for subjectID.
func NewServiceCredentials(tokens *TokenManager, subjectID string) *ServiceCredentials {
	return &ServiceCredentials{tokens: tokens, subjectID: subjectID}
}

// Token implements Provider.
func (s *ServiceCredentials) Token(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.tokens.now()
	if s.cached != "" && now.Before(s.expires.Add(-s.tokens.ttl/10)) {
		return s.cached, nil
	}
	meta, token, err := s.tokens.GenerateToken(s.subjectID, domain.SubjectTypeService)
	if err != nil {
		return "", err
	}
	s.cached = token
	s.expires = meta.ExpiresAt
	return token, nil
}
