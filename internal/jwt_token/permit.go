package jwttoken

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "scrip/pkg/domain"
	dErrors "scrip/pkg/domain-errors"
)

// permitTTL bounds how long a signed permit stays presentable. The role
// expiry inside the permit is separate and may lie further out.
const permitTTL = 10 * time.Minute

// PermitClaims bind a delegation authorization to one record. A permit lets
// a third party submit the owner's delegation without the owner calling the
// API directly. Token ids travel as decimal strings because JSON numbers
// cannot carry a full uint64.
type PermitClaims struct {
	Owner         string `json:"owner"`
	Delegate      string `json:"delegate"`
	DocumentID    string `json:"document_id"`
	TokenID       string `json:"token_id"`
	RoleExpiresAt int64  `json:"role_expires_at"`
	jwt.RegisteredClaims
}

// GenerateDelegationPermit signs a permit on behalf of a record owner.
func (s *Service) GenerateDelegationPermit(owner, delegate id.PartyID, doc id.DocumentID, token id.TokenID, roleExpiry time.Time) (string, error) {
	now := time.Now()
	permit := jwt.NewWithClaims(jwt.SigningMethodHS256, PermitClaims{
		Owner:         owner.String(),
		Delegate:      delegate.String(),
		DocumentID:    doc.String(),
		TokenID:       token.String(),
		RoleExpiresAt: roleExpiry.Unix(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(permitTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})

	signed, err := permit.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// ValidateDelegationPermit parses and verifies a permit. Every failure maps
// to the invalid-delegation-signature code; the resolver treats the permit as
// a single opaque authorization that either holds or does not.
func (s *Service) ValidateDelegationPermit(raw string) (*PermitClaims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &PermitClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeInvalidDelegationSignature, "delegation permit is invalid or expired")
	}

	claims, ok := parsed.Claims.(*PermitClaims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidDelegationSignature, "delegation permit is invalid or expired")
	}
	return claims, nil
}
