package domain

import "time"

// SubjectType differentiates the callers a token can be issued to.
type SubjectType string

const (
	SubjectTypeClient  SubjectType = "CLIENT"
	SubjectTypeService SubjectType = "SERVICE"
)

// Token represents issued authentication token metadata.
type Token struct {
	ID        string
	SubjectID string
	Subject   SubjectType
	ExpiresAt time.Time
	IssuedAt  time.Time
}
