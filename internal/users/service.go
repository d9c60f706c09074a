package users

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/sociopedia/sociopedia/server/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials covers both an unknown email and a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// RegisterInput carries the registration form fields.
type RegisterInput struct {
	FirstName   string
	LastName    string
	Email       string
	Password    string
	PicturePath string
	Friends     []string
	Location    string
	Occupation  string
}

// Service encapsulates user-related business logic
type Service struct {
	repo UserRepository
	cost int
}

func NewService(r UserRepository) *Service {
	return &Service{repo: r, cost: bcrypt.DefaultCost}
}

// Register hashes the password and stores a new user. Profile counters start
// at random values.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	friends := in.Friends
	if friends == nil {
		friends = []string{}
	}
	u := &models.User{
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Email:         normalizeEmail(in.Email),
		PasswordHash:  string(hash),
		PicturePath:   in.PicturePath,
		Friends:       friends,
		Location:      in.Location,
		Occupation:    in.Occupation,
		ViewedProfile: rand.Intn(10000),
		Impressions:   rand.Intn(10000),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate checks an email/password pair.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// normalizeEmail gives every backend the same key, so lookups and the unique
// index agree regardless of how the address was typed.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GetByID returns ErrNotFound for unknown ids.
func (s *Service) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}
