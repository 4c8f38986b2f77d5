package util

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ServiceClaims S2S 令牌，Subject 为调用方服务名
type ServiceClaims struct {
	jwt.RegisteredClaims
}

func GenerateServiceToken(service, secret string, expiration time.Duration) (string, error) {
	now := time.Now()
	claims := &ServiceClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   service,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseServiceToken(tokenString, secret string) (*ServiceClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ServiceClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*ServiceClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid service token")
	}
	if claims.Subject == "" {
		return nil, errors.New("service token has no subject")
	}
	return claims, nil
}

func GetServiceFromContext(c *gin.Context) string {
	claims, exists := c.Get("service")
	if !exists {
		return ""
	}
	sc, ok := claims.(*ServiceClaims)
	if !ok {
		return ""
	}
	return sc.Subject
}
