package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL - срок жизни выданного токена.
const TokenTTL = 12 * time.Hour

const issuer = "tower-stacker"

var (
	secretMu  sync.RWMutex
	jwtSecret []byte
)

func init() {
	// Случайный ключ: без SetJWTSecret токены живут до перезапуска процесса
	jwtSecret = make([]byte, 32)
	if _, err := rand.Read(jwtSecret); err != nil {
		jwtSecret = []byte("development-secret-key-change-in-production")
	}
}

// Claims represents JWT claims
type Claims struct {
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// GenerateJWT выпускает HS256 токен для пользователя.
func GenerateJWT(username string, isAdmin bool) (string, error) {
	if username == "" {
		return "", errors.New("empty subject")
	}
	now := time.Now()
	claims := &Claims{
		Username: username,
		IsAdmin:  isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret())
}

// ValidateJWT checks token validity and returns associated user info
func ValidateJWT(tokenString string) (username string, isValid bool, isAdmin bool) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret(), nil
	}, jwt.WithIssuer(issuer))

	if err != nil || !token.Valid {
		return "", false, false
	}

	return claims.Username, true, claims.IsAdmin
}

// GenerateSecureSecret generates a new secure secret key (base64)
func GenerateSecureSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// SetJWTSecret задаёт ключ подписи (base64, минимум 32 байта).
func SetJWTSecret(secretB64 string) error {
	decoded, err := base64.StdEncoding.DecodeString(secretB64)
	if err != nil {
		return err
	}
	if len(decoded) < 32 {
		return errors.New("secret key must be at least 32 bytes")
	}
	secretMu.Lock()
	jwtSecret = decoded
	secretMu.Unlock()
	return nil
}

func secret() []byte {
	secretMu.RLock()
	defer secretMu.RUnlock()
	return jwtSecret
}
