package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"clientdesk/models"
	repository "clientdesk/repositories"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"
)

type AuthService interface {
	Signup(ctx context.Context, req models.SignupRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	Me(ctx context.Context, userID string) (*models.User, error)
	CaptureLead(ctx context.Context, in models.Lead) (*models.Lead, error)
}

type authService struct {
	store  *repository.Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthService(store *repository.Store, secret string, ttl time.Duration) AuthService {
	return &authService{
		store:  store,
		secret: []byte(secret),
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Signup registers a client account. Staff accounts are created by a
// manager through InviteUser.
func (s *authService) Signup(ctx context.Context, req models.SignupRequest) (*models.AuthResponse, error) {
	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	u := models.User{
		ID:           uuid.NewString(),
		Email:        normalizeEmail(req.Email),
		Name:         strings.TrimSpace(req.Name),
		Role:         models.RoleClient,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.store.Users.Insert(ctx, &u); err != nil {
		return nil, fmt.Errorf("signup: %w", translateDuplicate(err))
	}
	return s.issue(&u)
}

func (s *authService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	u, err := s.store.Users.FindOne(ctx, bson.M{"email": normalizeEmail(req.Email)})
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}
	return s.issue(u)
}

func (s *authService) Me(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.store.Users.FindOne(ctx, repository.ByID(userID))
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", userID, err)
	}
	return u, nil
}

// CaptureLead stores a lead from the public enquiry form.
func (s *authService) CaptureLead(ctx context.Context, in models.Lead) (*models.Lead, error) {
	l := newLead(in, uuid.NewString(), s.now())
	l.Source = "website"
	l.Status = "new"
	if err := s.store.Leads.Insert(ctx, &l); err != nil {
		return nil, fmt.Errorf("capture lead: %w", err)
	}
	return &l, nil
}

func (s *authService) issue(u *models.User) (*models.AuthResponse, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	claims := models.Claims{
		UserID: u.ID,
		Name:   u.Name,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &models.AuthResponse{Token: token, ExpiresAt: expires, User: *u}, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func newLead(in models.Lead, id string, now time.Time) models.Lead {
	l := in
	l.ID = id
	l.Email = normalizeEmail(in.Email)
	l.CreatedAt = now
	if l.Status == "" {
		l.Status = "new"
	}
	return l
}
