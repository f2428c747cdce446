package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims identify an admin session for one shop. The session id is checked
// against Redis so a session can be revoked before the token expires.
type Claims struct {
	Shop      string `json:"shop"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

func GenerateToken(secret []byte, shop, sessionID string, ttl time.Duration) (string, error) {
	shop = strings.ToLower(strings.TrimSpace(shop))
	if shop == "" {
		return "", errors.New("shop is required")
	}
	now := time.Now()
	claims := Claims{
		Shop:      shop,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   shop,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func ParseToken(secret []byte, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.Shop != "" {
		return claims, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}
