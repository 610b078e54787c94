package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/springdom/solace/internal/config"
	"github.com/springdom/solace/internal/models"
	"github.com/springdom/solace/internal/repository"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// UserService handles authentication and user management.
type UserService struct {
	users *repository.UserRepository
	cfg   config.Config
}

func NewUserService(db *repository.Database, cfg config.Config) *UserService {
	return &UserService{users: repository.NewUserRepository(db), cfg: cfg}
}

// Login authenticates by username (or email) and password and returns the
// user plus a signed JWT.
func (s *UserService) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, pgx.ErrNoRows) {
		user, err = s.users.GetByEmail(ctx, username)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !user.IsActive {
		return nil, "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, "", err
	}
	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		log.Printf("updating last login for %s: %v", user.Username, err)
	}
	return user, token, nil
}

func (s *UserService) generateToken(user *models.User) (string, error) {
	expire := time.Duration(s.cfg.JWTExpireMinutes) * time.Minute
	claims := jwt.MapClaims{
		"user_id":  user.ID.String(),
		"username": user.Username,
		"role":     string(user.Role),
		"exp":      time.Now().Add(expire).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.SecretKey))
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// CreateUser hashes the password and stores the user.
func (s *UserService) CreateUser(ctx context.Context, user *models.User, password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.HashedPassword = string(hashed)
	return s.users.Create(ctx, user)
}

// ChangePassword verifies the current password before setting the new one.
func (s *UserService) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(current)) != nil {
		return ErrInvalidCredentials
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.HashedPassword = string(hashed)
	user.MustChangePassword = false
	return s.users.Update(ctx, user)
}

// ResetPassword sets a new password without checking the old one (admin
// action) and forces a change on next login.
func (s *UserService) ResetPassword(ctx context.Context, id uuid.UUID, next string) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.HashedPassword = string(hashed)
	user.MustChangePassword = true
	return s.users.Update(ctx, user)
}

// SeedAdmin creates the initial admin account when it does not exist.
func (s *UserService) SeedAdmin(ctx context.Context) error {
	_, err := s.users.GetByUsername(ctx, s.cfg.AdminUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	admin := &models.User{
		Username:           s.cfg.AdminUsername,
		Email:              s.cfg.AdminEmail,
		DisplayName:        "Administrator",
		Role:               models.RoleAdmin,
		IsActive:           true,
		MustChangePassword: true,
	}
	if err := s.CreateUser(ctx, admin, s.cfg.AdminPassword); err != nil {
		return err
	}
	log.Printf("seeded admin user %q", admin.Username)
	return nil
}
