// Package auth is the minimal identity provider: bcrypt passwords and
// HS256 session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/emilythestrangee/yatube/internal/models"
)

const (
	SessionCookie = "session"
	TokenTTL      = 72 * time.Hour
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrUsernameTaken      = errors.New("auth: username already exists")
	ErrInvalidToken       = errors.New("auth: invalid token")
)

// Claims wraps jwt.RegisteredClaims with the username for convenience.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserID returns the numeric subject, or 0 when it is malformed.
func (c *Claims) UserID() int {
	v, err := strconv.Atoi(c.Subject)
	if err != nil {
		return 0
	}
	return v
}

type Service struct {
	db     *gorm.DB
	secret []byte
	now    func() time.Time
}

func NewService(db *gorm.DB, secret string) *Service {
	return &Service{db: db, secret: []byte(secret), now: time.Now}
}

// Register creates a user with a hashed password.
func (s *Service) Register(ctx context.Context, form models.SignupForm) (*models.User, error) {
	username := strings.TrimSpace(form.Username)

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("auth: lookup user: %w", err)
	}
	if existing > 0 {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}

	user := models.User{
		Username: username,
		Email:    strings.TrimSpace(form.Email),
		Password: string(hash),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("auth: create user: %w", err)
	}
	return &user, nil
}

// Authenticate checks a username/password pair.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("auth: lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// IssueToken signs a session token for user.
func (s *Service) IssueToken(user *models.User) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("auth: secret not configured")
	}

	now := s.now()
	exp := now.Add(TokenTTL)
	claims := Claims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, exp, nil
}

// ParseToken verifies signature and expiry.
func (s *Service) ParseToken(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID() == 0 {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

// UserFromToken resolves a token to a stored user.
func (s *Service) UserFromToken(ctx context.Context, tokenStr string) (*models.User, error) {
	claims, err := s.ParseToken(tokenStr)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, claims.UserID()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("auth: load user: %w", err)
	}
	return &user, nil
}
