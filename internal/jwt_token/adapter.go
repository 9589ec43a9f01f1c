package jwttoken

import (
	"scrip/internal/platform/middleware"
	"scrip/internal/resolver"
)

func ToMiddlewareClaims(claims *Claims) *middleware.PartyClaims {
	return &middleware.PartyClaims{
		PartyID: claims.PartyID,
	}
}

// ServiceAdapter lets the auth middleware consume the token service without
// depending on this package's claim type.
type ServiceAdapter struct {
	service *Service
}

func NewServiceAdapter(service *Service) *ServiceAdapter {
	return &ServiceAdapter{service: service}
}

func (a *ServiceAdapter) ValidateToken(token string) (*middleware.PartyClaims, error) {
	claims, err := a.service.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}

// ValidateDelegationPermit lets the resolver engine consume permits without
// depending on this package's claim type.
func (a *ServiceAdapter) ValidateDelegationPermit(raw string) (*resolver.PermitClaims, error) {
	claims, err := a.service.ValidateDelegationPermit(raw)
	if err != nil {
		return nil, err
	}
	return &resolver.PermitClaims{
		Owner:         claims.Owner,
		Delegate:      claims.Delegate,
		DocumentID:    claims.DocumentID,
		TokenID:       claims.TokenID,
		RoleExpiresAt: claims.RoleExpiresAt,
	}, nil
}
