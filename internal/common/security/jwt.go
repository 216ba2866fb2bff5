package security

import (
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

// ExportScope is the only scope signed links are issued for.
const ExportScope = "export"

var TokenAuth *jwtauth.JWTAuth

func InitJWT(key []byte) {
	TokenAuth = jwtauth.New("HS256", key, nil)
}

// GenerateExportToken signs a short-lived token that lets an admin download an
// export without the session cookie, e.g. from a new browser tab.
func GenerateExportToken(adminID string, ttl time.Duration) (string, time.Time, error) {
	expiresAt := time.Now().Add(ttl)
	claims := jwt.MapClaims{
		"sub":   adminID,
		"scope": ExportScope,
	}
	jwtauth.SetIssuedNow(claims)
	jwtauth.SetExpiry(claims, expiresAt)
	_, tokenString, err := TokenAuth.Encode(claims)
	return tokenString, expiresAt, err
}

// Helper functions to extract claims, used by the export link middleware.
func GetSubjectFromClaims(claims jwt.MapClaims) (string, error) {
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("sub claim is missing or not a string")
	}
	return sub, nil
}

func GetScopeFromClaims(claims jwt.MapClaims) (string, error) {
	scope, ok := claims["scope"].(string)
	if !ok {
		return "", errors.New("scope claim is missing or not a string")
	}
	return scope, nil
}
