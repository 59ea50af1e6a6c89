package session

import (
	"context"
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"tictactoe-client/internal/client"
	"tictactoe-client/internal/models"
)

var (
	ErrInvalidEmail     = errors.New("please enter a valid email address")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrNameTooShort     = errors.New("name must be at least 2 characters")
)

const (
	minPasswordLength = 8
	minNameLength     = 2
)

var emailPattern = regexp.MustCompile(`^[A-Z0-9a-z._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,64}$`)

func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

func ValidateName(name string) error {
	if utf8.RuneCountInString(name) < minNameLength {
		return ErrNameTooShort
	}
	return nil
}

// AuthService logs users in and out against the server and records the
// result in the Repository.
type AuthService struct {
	api       *client.Client
	repo      *Repository
	endpoints client.Endpoints
}

func NewAuthService(api *client.Client, repo *Repository, endpoints client.Endpoints) *AuthService {
	return &AuthService{api: api, repo: repo, endpoints: endpoints}
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*models.UserSession, error) {
	email = strings.TrimSpace(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	body := map[string]any{
		"email":    email,
		"password": password,
	}
	return s.authenticate(ctx, s.endpoints.Login, body)
}

func (s *AuthService) Register(ctx context.Context, name, email, password string) (*models.UserSession, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	body := map[string]any{
		"name":     name,
		"email":    email,
		"password": password,
	}
	return s.authenticate(ctx, s.endpoints.Register, body)
}

// Logout revokes the token on the server when possible and always forgets
// the local session.
func (s *AuthService) Logout(ctx context.Context) error {
	if _, ok := s.repo.CurrentSession(ctx); ok {
		if err := s.api.Request(ctx, http.MethodPost, s.endpoints.Logout, nil, nil); err != nil {
			log.Printf("session: server logout failed: %v", err)
		}
	}
	return s.repo.Terminate(ctx)
}

func (s *AuthService) authenticate(ctx context.Context, endpoint string, body map[string]any) (*models.UserSession, error) {
	us, err := client.Do[models.UserSession](ctx, s.api, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Establish(ctx, us); err != nil {
		return nil, err
	}
	return &us, nil
}
