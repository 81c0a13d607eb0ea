package session

import (
	"context"
	"time"

	"github.com/Overland-East-Bay/carpool-api/internal/domain"
)

// TokenTTL is the fixed lifetime of a session token. There is no refresh.
const TokenTTL = time.Hour

// Token is a signed session credential. It is never persisted.
type Token struct {
	Value     string
	AccountID domain.AccountID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Issuer issues session tokens bound to an account.
type Issuer interface {
	Issue(ctx context.Context, accountID domain.AccountID) (Token, error)
}
