package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const subjectKey = "subject"

type TokenClaims struct {
	jwt.RegisteredClaims
}

// NewToken signs an HS256 token for subject, valid for ttl when ttl > 0.
func NewToken(jwtSecret, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
}

func tokenFromRequest(c *gin.Context) string {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		tokenStr, _ = c.Cookie("token")
	}
	if tokenStr == "" {
		auth := c.GetHeader("Authorization")
		if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
			tokenStr = auth[7:]
		}
	}
	return tokenStr
}

// NeedAuth rejects requests without a valid token. Authentication is off
// when jwtSecret is empty.
func NeedAuth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if jwtSecret == "" {
			c.Next()
			return
		}
		tokenStr := tokenFromRequest(c)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized",
			})
			return
		}

		token, err := jwt.ParseWithClaims(tokenStr, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid token",
			})
			return
		}
		if claims, ok := token.Claims.(*TokenClaims); ok {
			c.Set(subjectKey, claims.Subject)
		}
		c.Next()
	}
}
