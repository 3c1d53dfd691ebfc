// Package token issues and validates the signed correlation tokens carried
// on provider webhook callbacks. The token ties an async lookup back to the
// tenant and profile that dispatched it, so the callback handler never has
// to trust identifiers from the request body.
package token

import (
	"errors"
	"time"

	"traitsync/pkg/domain"
	dErrors "traitsync/pkg/domain-errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims identifies the lookup a webhook callback completes.
type Claims struct {
	TenantID  string `json:"tenant_id"`
	ProfileID string `json:"profile_id"`
	RelatedID string `json:"related_id,omitempty"`
	jwt.RegisteredClaims
}

// Lookup is what a correlation token encodes about one dispatched lookup.
type Lookup struct {
	Tenant  domain.TenantID
	Profile domain.ProfileID
	// RelatedAccount carries the account context of the dispatching event,
	// when it had one, so the callback routes company traits to the same
	// account instead of falling back to domain addressing. Optional.
	RelatedAccount domain.AccountID
}

// Service signs and validates correlation tokens.
type Service struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
}

func NewService(signingKey string, issuer string, ttl time.Duration) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		ttl:        ttl,
	}
}

// Generate signs a correlation token for one dispatched lookup.
func (s *Service) Generate(lookup Lookup) (string, error) {
	related := ""
	if !lookup.RelatedAccount.IsNil() {
		related = lookup.RelatedAccount.String()
	}
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		TenantID:  lookup.Tenant.String(),
		ProfileID: lookup.Profile.String(),
		RelatedID: related,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})

	signed, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Validate parses a callback token and returns the lookup it correlates.
func (s *Service) Validate(tokenString string) (Lookup, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Lookup{}, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return Lookup{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return Lookup{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return Lookup{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	lookup := Lookup{}
	lookup.Tenant, err = domain.ParseTenantID(claims.TenantID)
	if err != nil {
		return Lookup{}, dErrors.New(dErrors.CodeUnauthorized, "invalid tenant claim")
	}
	lookup.Profile, err = domain.ParseProfileID(claims.ProfileID)
	if err != nil {
		return Lookup{}, dErrors.New(dErrors.CodeUnauthorized, "invalid profile claim")
	}
	if claims.RelatedID != "" {
		lookup.RelatedAccount, err = domain.ParseAccountID(claims.RelatedID)
		if err != nil {
			return Lookup{}, dErrors.New(dErrors.CodeUnauthorized, "invalid related claim")
		}
	}
	return lookup, nil
}
