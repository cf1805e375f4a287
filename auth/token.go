package auth

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// TokenParser validates HMAC-signed access tokens issued by the auth service.
type TokenParser struct {
	secret []byte
}

func NewTokenParser(secret string) *TokenParser {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return &TokenParser{}
	}
	return &TokenParser{secret: []byte(secret)}
}

func (tp *TokenParser) Enabled() bool { return tp != nil && len(tp.secret) > 0 }

// ParseAndValidateToken parses a JWT and returns its claims. If expectedType is
// non-empty, the "typ" claim must match it.
func (tp *TokenParser) ParseAndValidateToken(tokenStr, expectedType string) (jwt.MapClaims, error) {
	if !tp.Enabled() {
		return nil, fmt.Errorf("JWT secret not configured")
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tp.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	if expectedType != "" {
		if typ, ok := claims["typ"].(string); !ok || typ != expectedType {
			return nil, fmt.Errorf("invalid token type")
		}
	}
	return claims, nil
}

// PrincipalFromToken resolves the caller from an access token. The subject is
// read from "user_id", falling back to "sub".
func (tp *TokenParser) PrincipalFromToken(tokenStr string) (Principal, error) {
	claims, err := tp.ParseAndValidateToken(tokenStr, "access")
	if err != nil {
		return Principal{}, err
	}

	sub, _ := claims["user_id"].(string)
	if sub == "" {
		sub, _ = claims["sub"].(string)
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return Principal{}, fmt.Errorf("invalid subject claim")
	}
	role, _ := claims["role"].(string)
	return Principal{ID: id, Role: ParseRole(role)}, nil
}
