package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dvelasquez124/shopping-cart-app/internal/customer/domain"
)

const sessionTTL = 24 * time.Hour

type Service struct {
	log      *slog.Logger
	repo     UserRepository
	sessions SessionStore
}

func NewService(log *slog.Logger, repo UserRepository, sessions SessionStore) *Service {
	return &Service{log: log, repo: repo, sessions: sessions}
}

// Register creates a customer account. Admin accounts are provisioned
// out-of-band (see cmd seeding), never through this path.
func (s *Service) Register(ctx context.Context, name, email, password string) (domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return domain.User{}, domain.ValidationError{Msg: "name is required"}
	}
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, domain.ValidationError{Msg: "a valid email is required"}
	}
	if len(password) < 8 {
		return domain.User{}, domain.ValidationError{Msg: "password must be at least 8 characters"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}

	u := domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		Role:         domain.RoleCustomer,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return domain.User{}, err
	}
	s.log.Info("user registered", "user_id", u.ID)
	u.PasswordHash = ""
	return u, nil
}

// Login verifies credentials and issues a session token. Unknown email
// and wrong password fail identically.
func (s *Service) Login(ctx context.Context, email, password string) (string, domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		var nfe domain.NotFoundError
		if errors.As(err, &nfe) {
			return "", domain.User{}, domain.ErrInvalidCredentials
		}
		return "", domain.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", domain.User{}, domain.ErrInvalidCredentials
	}

	token := uuid.NewString()
	if err := s.sessions.Save(ctx, token, u.ID, sessionTTL); err != nil {
		return "", domain.User{}, err
	}
	u.PasswordHash = ""
	return token, u, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// Authenticate resolves a session token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, domain.ErrNoSession
	}
	userID, err := s.sessions.Lookup(ctx, token)
	if err != nil {
		return domain.User{}, domain.ErrNoSession
	}
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return domain.User{}, domain.ErrNoSession
	}
	u.PasswordHash = ""
	return u, nil
}

func (s *Service) ListCustomers(ctx context.Context, includeAdmins bool) ([]domain.User, error) {
	users, err := s.repo.List(ctx, includeAdmins)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.User{}, domain.ValidationError{Msg: "invalid user id: " + id}
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	u.PasswordHash = ""
	return u, nil
}
