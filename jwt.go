package crudboot

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	contextUserID = "user_id"
	contextRole   = "role"

	accessSecretEnv  = "JWT_SECRET"
	refreshSecretEnv = "JWT_REFRESH_SECRET"
)

type Claims struct {
	Role string `json:"role"`
	jwt.StandardClaims
}

// GenerateTokens issues an access token (24h, JWT_SECRET) and a refresh token
// (30 days, JWT_REFRESH_SECRET) for userId.
func GenerateTokens(userId string, role string) (string, string, error) {
	accessToken, err := generateJwtToken(userId, role, 24*time.Hour, os.Getenv(accessSecretEnv))
	if err != nil {
		return "", "", err
	}
	refreshToken, err := generateJwtToken(userId, role, 24*30*time.Hour, os.Getenv(refreshSecretEnv))
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

// ValidateSecrets reports ErrMissingSecret when JWT_SECRET or
// JWT_REFRESH_SECRET is empty.
func ValidateSecrets() error {
	for _, name := range []string{accessSecretEnv, refreshSecretEnv} {
		if os.Getenv(name) == "" {
			return fmt.Errorf("%w: %s", ErrMissingSecret, name)
		}
	}
	return nil
}

func generateJwtToken(userId string, role string, duration time.Duration, secretKey string) (string, error) {
	if secretKey == "" {
		return "", ErrMissingSecret
	}
	now := time.Now()
	claims := &Claims{
		Role: role,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(duration).Unix(),
			Id:        uuid.New().String(),
			IssuedAt:  now.Unix(),
			Issuer:    "crudboot",
			Subject:   userId,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secretKey))
}

func ParseAccessToken(tokenString string) (*jwt.Token, error) {
	return parseJwtToken(tokenString, os.Getenv(accessSecretEnv))
}

func ParseRefreshToken(tokenString string) (*jwt.Token, error) {
	return parseJwtToken(tokenString, os.Getenv(refreshSecretEnv))
}

func parseJwtToken(tokenString string, secretKey string) (*jwt.Token, error) {
	if secretKey == "" {
		return nil, ErrMissingSecret
	}
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})
}

func ExtractClaims(token *jwt.Token) (jwt.MapClaims, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("bearer token is invalid")
	}
	return claims, nil
}

func ExtractUserId(claims jwt.MapClaims) string {
	sub, _ := claims["sub"].(string)
	return sub
}

func ExtractRole(claims jwt.MapClaims) string {
	role, _ := claims["role"].(string)
	return role
}

// JWTAuthMiddleware accepts requests carrying a valid "Bearer" access token and
// stores its subject and role in the gin context.
func JWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		scheme, tokenString, found := strings.Cut(c.GetHeader("Authorization"), " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrUnauthorized.New("bearer token is required"))
			return
		}

		token, err := ParseAccessToken(tokenString)
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrUnauthorized.New("bearer token is invalid"))
			return
		}
		claims, err := ExtractClaims(token)
		if err != nil || ExtractUserId(claims) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrUnauthorized.New("bearer token is invalid"))
			return
		}

		c.Set(contextUserID, ExtractUserId(claims))
		c.Set(contextRole, ExtractRole(claims))
		c.Next()
	}
}
