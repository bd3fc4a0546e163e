// Package auth registers users, checks their credentials and issues the
// access and refresh tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"trendaryo/apperr"
	"trendaryo/middleware"
	"trendaryo/models"
	"trendaryo/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	maxNameLength     = 50
)

// Session is what a successful login hands back.
type Session struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresIn    int64        `json:"expiresIn"`
	User         *models.User `json:"user"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type DetailsRequest struct {
	Name               *string    `json:"name"`
	Email              *string    `json:"email"`
	Phone              *string    `json:"phone"`
	DateOfBirth        *time.Time `json:"dateOfBirth"`
	Gender             *string    `json:"gender"`
	Newsletter         *bool      `json:"newsletter"`
	Marketing          *bool      `json:"marketing"`
	EmailNotifications *bool      `json:"emailNotifications"`
}

type Service struct {
	Users      repository.UserRepository
	Auth       *middleware.Auth
	RefreshTTL time.Duration
	Cost       int
	Now        func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) cost() int {
	if s.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return s.Cost
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		return "", apperr.Validation("please add a valid email")
	}
	return email, nil
}

func checkName(name string) error {
	switch {
	case name == "":
		return apperr.Validation("please add a name")
	case len(name) > maxNameLength:
		return apperr.Validation("name cannot be more than %d characters", maxNameLength)
	}
	return nil
}

func (s *Service) hash(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", apperr.Validation("password must be at least %d characters", MinPasswordLength)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.cost())
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// session issues an access token and a fresh refresh token for u. Only
// the hash of the refresh token is stored.
func (s *Service) session(ctx context.Context, u *models.User) (*Session, error) {
	now := s.now()
	token, err := s.Auth.Issue(u, now)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	refresh, err := generateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	if err := s.Users.SetRefreshToken(ctx, u.ID, hashToken(refresh), now.Add(s.RefreshTTL)); err != nil {
		return nil, err
	}
	return &Session{
		Token:        token,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.Auth.TTL().Seconds()),
		User:         u,
	}, nil
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	name := strings.TrimSpace(req.Name)
	if err := checkName(name); err != nil {
		return nil, err
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	hashed, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}
	now := s.now()
	u := &models.User{
		ID:          uuid.New().String(),
		Email:       email,
		Password:    hashed,
		Name:        name,
		Role:        models.RoleUser,
		Preferences: models.DefaultPreferences(),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Users.Insert(ctx, u); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.Conflict("an account with this email already exists")
		}
		return nil, err
	}
	log.Info().Str("user", u.ID).Msg("user registered")
	return s.session(ctx, u)
}

var errCredentials = apperr.Unauthorized("invalid credentials")

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperr.Validation("please provide an email and password")
	}
	u, err := s.Users.FindByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, errCredentials
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, apperr.Unauthorized("account is deactivated")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, errCredentials
	}
	if err := s.Users.RecordLogin(ctx, u.ID, s.now()); err != nil {
		log.Warn().Err(err).Str("user", u.ID).Msg("record login")
	}
	return s.session(ctx, u)
}

func (s *Service) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.Users.FindByID(ctx, userID)
}

func (s *Service) UpdateDetails(ctx context.Context, userID string, req DetailsRequest) (*models.User, error) {
	u, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		u.Name = strings.TrimSpace(*req.Name)
		if err := checkName(u.Name); err != nil {
			return nil, err
		}
	}
	if req.Email != nil {
		if u.Email, err = normalizeEmail(*req.Email); err != nil {
			return nil, err
		}
	}
	if req.Phone != nil {
		u.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.DateOfBirth != nil {
		u.DateOfBirth = req.DateOfBirth
	}
	if req.Gender != nil {
		u.Gender = *req.Gender
	}
	if req.Newsletter != nil {
		u.Preferences.Newsletter = *req.Newsletter
	}
	if req.Marketing != nil {
		u.Preferences.Marketing = *req.Marketing
	}
	if req.EmailNotifications != nil {
		u.Preferences.EmailNotifications = *req.EmailNotifications
	}
	u.UpdatedAt = s.now()
	if err := s.Users.Save(ctx, u); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.Conflict("an account with this email already exists")
		}
		return nil, err
	}
	return u, nil
}

// UpdatePassword replaces the password and rotates the session.
func (s *Service) UpdatePassword(ctx context.Context, userID, current, next string) (*Session, error) {
	u, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(current)); err != nil {
		return nil, apperr.Unauthorized("current password is incorrect")
	}
	if u.Password, err = s.hash(next); err != nil {
		return nil, err
	}
	u.UpdatedAt = s.now()
	if err := s.Users.Save(ctx, u); err != nil {
		return nil, err
	}
	return s.session(ctx, u)
}

// Refresh trades a valid refresh token for a new session. The old refresh
// token stops working.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, apperr.Validation("refresh token is required")
	}
	u, err := s.Users.FindByRefreshToken(ctx, hashToken(refreshToken))
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Unauthorized("invalid refresh token")
	}
	if err != nil {
		return nil, err
	}
	if u.RefreshExpiry == nil || s.now().After(*u.RefreshExpiry) {
		return nil, apperr.Unauthorized("refresh token expired")
	}
	if !u.IsActive {
		return nil, apperr.Unauthorized("account is deactivated")
	}
	return s.session(ctx, u)
}

// Logout revokes the user's refresh token.
func (s *Service) Logout(ctx context.Context, userID string) error {
	return s.Users.SetRefreshToken(ctx, userID, "", time.Time{})
}
