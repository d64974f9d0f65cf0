// Package auth validates the bearer tokens that the EHR handshake issues to
// the sharing application. Token issuance itself is the EHR's concern; this
// service only consumes the claims.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/carebridge/sharelink/internal/common"
)

// Claims carries the issuing provider's identity alongside the registered
// claims.
type Claims struct {
	jwt.RegisteredClaims
	ProviderID   string `json:"provider_id"`
	ProviderName string `json:"provider_name"`
}

// GenerateToken signs a provider token with HS256. Used by tests and by
// deployments where the sharing service shares a secret with the EHR proxy.
func GenerateToken(providerID, providerName string, secretKey []byte, validity time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validity)),
		},
		ProviderID:   providerID,
		ProviderName: providerName,
	})

	return token.SignedString(secretKey)
}

// ProviderFromToken verifies the token and returns the provider id and name.
func ProviderFromToken(tokenString string, secretKey []byte) (string, string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		return "", "", common.ErrInvalidToken
	}

	if !token.Valid || claims.ProviderID == "" {
		return "", "", common.ErrInvalidToken
	}

	return claims.ProviderID, claims.ProviderName, nil
}
