package session

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/shwemart/storefront-client/internal/domain"
)

var ErrNoRoleClaim = errors.New("token carries no role claim")

// Claims mirrors the backend's access-token claims. The client never
// verifies the signature (it has no secret); it only reads the payload
// to recover the role tag when the stored one is missing.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func parseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return claims, nil
}

// RoleFromToken derives the session role from the bearer token's claims.
func RoleFromToken(token string) (domain.Role, error) {
	claims, err := parseClaims(token)
	if err != nil {
		return "", err
	}
	switch domain.Role(claims.Role) {
	case domain.RoleCustomer, domain.RoleVendor, domain.RoleAdmin:
		return domain.Role(claims.Role), nil
	case "":
		return "", ErrNoRoleClaim
	default:
		return "", fmt.Errorf("unknown role claim %q", claims.Role)
	}
}

// UserIDFromToken returns the user id claim, falling back to the
// registered subject.
func UserIDFromToken(token string) (string, error) {
	claims, err := parseClaims(token)
	if err != nil {
		return "", err
	}
	if claims.UserID != "" {
		return claims.UserID, nil
	}
	return claims.Subject, nil
}
