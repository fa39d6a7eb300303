package services

import (
	"context"
	"errors"
	"strings"

	"github.com/OkanBey11/ToDoApiWithGemini/internal/auth"
	"github.com/OkanBey11/ToDoApiWithGemini/types"
)

const (
	defaultUserRole     = "user"
	usernameMaxLen      = 100
	userFieldMaxLen     = 255
	passwordMaxLenBytes = 72
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

// Registration is the input accepted when creating an account.
type Registration struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
	Role      string
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo      UserRepository
	passwords PasswordHasher
	events    *EventPublisher
}

func NewUserService(repo UserRepository, passwords PasswordHasher, events *EventPublisher) *UserService {
	return &UserService{repo: repo, passwords: passwords, events: events}
}

func (s *UserService) GetByID(ctx context.Context, id int64) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

// Register validates req, hashes the password and stores an active user.
// A taken username yields store.ErrConflict.
func (s *UserService) Register(ctx context.Context, req Registration) (types.User, error) {
	verr := &ValidationError{}
	verr.required("username", req.Username)
	if len(req.Username) > usernameMaxLen {
		verr.add("username", "must be at most %d characters", usernameMaxLen)
	}
	verr.required("email", req.Email)
	if req.Email != "" && !strings.Contains(req.Email, "@") {
		verr.add("email", "must be an email address")
	}
	if len(req.FirstName) > userFieldMaxLen {
		verr.add("first_name", "must be at most %d characters", userFieldMaxLen)
	}
	if len(req.LastName) > userFieldMaxLen {
		verr.add("last_name", "must be at most %d characters", userFieldMaxLen)
	}
	if req.Password == "" {
		verr.add("password", "is required")
	}
	for _, f := range [][2]string{
		{"username", req.Username},
		{"email", req.Email},
		{"first_name", req.FirstName},
		{"last_name", req.LastName},
	} {
		verr.storable(f[0], f[1])
	}
	if err := verr.err(); err != nil {
		return types.User{}, err
	}

	hash, err := s.passwords.Hash(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			verr.add("password", "must be at most %d bytes", passwordMaxLenBytes)
			return types.User{}, verr
		}
		return types.User{}, err
	}

	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = defaultUserRole
	}

	user, err := s.repo.Create(ctx, types.User{
		Username:     req.Username,
		Email:        strings.TrimSpace(req.Email),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         role,
		PasswordHash: hash,
		IsActive:     true,
	})
	if err != nil {
		return types.User{}, err
	}

	s.events.Publish(ctx, types.EventUserRegistered, user.ID, 0)
	return user, nil
}

// SetActive enables or disables login for the user.
func (s *UserService) SetActive(ctx context.Context, id int64, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}
