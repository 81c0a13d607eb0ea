// Package session issues signed session tokens.
package session

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"

	"github.com/Overland-East-Bay/carpool-api/internal/domain"
	clockport "github.com/Overland-East-Bay/carpool-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/carpool-api/internal/ports/out/session"
)

// MinSecretLength is the minimum HS256 signing secret length, in bytes.
const MinSecretLength = 32

// Claims are the JWT claims of a session token. AccountID duplicates the subject
// under "id" for clients that read it from there.
type Claims struct {
	jwt.RegisteredClaims
	AccountID string `json:"id"`
}

// JWTIssuer signs HS256 session tokens with a process-wide secret.
type JWTIssuer struct {
	secret []byte
	clk    clockport.Clock
}

func NewJWTIssuer(secret string, clk clockport.Clock) (*JWTIssuer, error) {
	if secret == "" {
		return nil, oops.Code("JWT_SECRET_MISSING").Errorf("session signing secret is empty")
	}
	if len(secret) < MinSecretLength {
		return nil, oops.Code("JWT_SECRET_TOO_SHORT").With("min_length", MinSecretLength).Errorf("session signing secret must be at least %d bytes", MinSecretLength)
	}
	return &JWTIssuer{secret: []byte(secret), clk: clk}, nil
}

func (i *JWTIssuer) Issue(ctx context.Context, accountID domain.AccountID) (session.Token, error) {
	_ = ctx
	now := i.clk.Now().Truncate(jwt.TimePrecision)
	expires := now.Add(session.TokenTTL)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(accountID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		AccountID: string(accountID),
	})
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return session.Token{}, oops.Code("JWT_SIGN_FAILED").With("account_id", accountID).Wrap(err)
	}
	return session.Token{
		Value:     signed,
		AccountID: accountID,
		IssuedAt:  now,
		ExpiresAt: expires,
	}, nil
}
