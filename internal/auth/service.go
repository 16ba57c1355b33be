package auth

import (
	"fmt"
	"time"

	"github.com/shivsaxena91/ChatServiceProtocol/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Service hashes credentials and issues session tokens. Successful
// signups and logins hand the client a signed token it may present on a
// later AUTH instead of the password.
type Service struct {
	secret    []byte
	expiresIn time.Duration
}

func NewService(cfg *config.Config) *Service {
	return &Service{
		secret:    cfg.JWT.Secret,
		expiresIn: cfg.JWT.ExpiresIn,
	}
}

// HashPassword derives the bcrypt hash stored in the account's password
// field.
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored hash.
func (s *Service) VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateToken signs a session token for username.
func (s *Service) GenerateToken(username string) (string, error) {
	claims := jwt.MapClaims{
		"username": username,
		"exp":      time.Now().Add(s.expiresIn).Unix(),
		"iat":      time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken checks signature and expiry and returns the username the
// token was issued for.
func (s *Service) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.MapClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	username, ok := (*claims)["username"].(string)
	if !ok || username == "" {
		return "", fmt.Errorf("invalid username in token")
	}
	return username, nil
}
