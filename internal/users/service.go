package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const bcryptCost = 10

var (
	// ErrMissingFields indicates a registration or login request without all required fields.
	ErrMissingFields = errors.New("users: all fields required")
	// ErrEmailTaken indicates the email address is already registered.
	ErrEmailTaken = errors.New("users: email already registered")
	// ErrUserNotFound indicates no account exists for the identifier.
	ErrUserNotFound = errors.New("users: user not found")
	// ErrInvalidPassword indicates the supplied password did not match the stored hash.
	ErrInvalidPassword = errors.New("users: invalid password")
)

// ServiceConfig describes the dependencies required by the user service.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
}

// Service manages account registration, login and directory lookups.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewService constructs the user service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("users: database connection required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{db: cfg.Database, now: clock}, nil
}

// Register creates an account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, name, email, password string) (*User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return nil, ErrMissingFields
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &User{Name: name, Email: email, PasswordHash: string(hash), CreatedAt: s.now()}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies the credentials and returns the matching account.
func (s *Service) Login(ctx context.Context, email, password string) (*User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	var user User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidPassword
	}
	return &user, nil
}

// List returns every account ordered by name.
func (s *Service) List(ctx context.Context) ([]User, error) {
	var out []User
	err := s.db.WithContext(ctx).Order("name").Find(&out).Error
	return out, err
}

// UserName returns the display name for a user id.
func (s *Service) UserName(ctx context.Context, id uint) (string, error) {
	var user User
	err := s.db.WithContext(ctx).Select("id", "name").First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", err
	}
	return user.Name, nil
}
