// Package service implements user administration and onboarding.
package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/google/uuid"

	"dim_dashboard_backend/internal/email"
	"dim_dashboard_backend/internal/users/repository"
	"dim_dashboard_backend/internal/users/transport"
	"dim_dashboard_backend/platform/apperr"
	"dim_dashboard_backend/platform/firebase"
	"dim_dashboard_backend/platform/logger"
)

const (
	defaultRole         = "user"
	initialPasswordSize = 24
)

// Accounts manages identity-provider accounts. Implemented by firebase.Client.
type Accounts interface {
	LookupUID(ctx context.Context, email string) (string, error)
	CreateAccount(ctx context.Context, params firebase.AccountParams) (string, error)
	DeleteAccount(ctx context.Context, uid string) error
	PasswordResetLink(ctx context.Context, email, continueURL string) (string, error)
}

// Service provides business logic for users.
type Service struct {
	repo       repository.Repository
	accounts   Accounts
	mail       email.Sender
	appBaseURL string
	log        *logger.Logger
}

// New creates a new users service. accounts may be nil when no identity
// provider is configured; onboarding is then unavailable.
func New(repo repository.Repository, accounts Accounts, mail email.Sender, appBaseURL string, log *logger.Logger) *Service {
	if mail == nil {
		mail = email.NoopSender{}
	}
	return &Service{
		repo:       repo,
		accounts:   accounts,
		mail:       mail,
		appBaseURL: strings.TrimRight(appBaseURL, "/"),
		log:        log,
	}
}

// List retrieves all users.
func (s *Service) List(ctx context.Context) (transport.UserListResponse, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return transport.UserListResponse{}, err
	}
	resp := transport.UserListResponse{Items: make([]transport.UserResponse, 0, len(users)), Total: len(users)}
	for _, u := range users {
		resp.Items = append(resp.Items, toResponse(u))
	}
	return resp, nil
}

// Onboard provisions an identity-provider account, stores the user with its
// clinics and sends a welcome mail with a set-password link. Onboarding an
// existing email updates that user instead of failing.
func (s *Service) Onboard(ctx context.Context, req transport.OnboardUserRequest) (transport.OnboardUserResponse, error) {
	if s.accounts == nil {
		return transport.OnboardUserResponse{}, apperr.Unavailable("identity provider is not configured")
	}

	addr := normalizeEmail(req.Email)
	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = defaultRole
	}
	exists, err := s.repo.RoleExists(ctx, role)
	if err != nil {
		return transport.OnboardUserResponse{}, err
	}
	if !exists {
		return transport.OnboardUserResponse{}, apperr.Validation("unknown role: " + role)
	}

	uid, created, err := s.ensureAccount(ctx, addr, strings.TrimSpace(req.Name))
	if err != nil {
		return transport.OnboardUserResponse{}, err
	}

	user, err := s.repo.Upsert(ctx, repository.UpsertParams{
		Email:       addr,
		Name:        strings.TrimSpace(req.Name),
		Role:        role,
		FirebaseUID: &uid,
	})
	if err != nil {
		return transport.OnboardUserResponse{}, err
	}

	if req.ClinicIDs != nil {
		ids := dedupe(req.ClinicIDs)
		if err := s.repo.SetClinics(ctx, user.ID, ids); err != nil {
			return transport.OnboardUserResponse{}, err
		}
		user.ClinicIDs = ids
	}

	sent := s.sendWelcome(ctx, user)
	s.log.Info("user onboarded", "userId", user.ID, "email", user.Email, "role", role, "accountCreated", created, "welcomeSent", sent)

	return transport.OnboardUserResponse{User: toResponse(user), Created: created, WelcomeSent: sent}, nil
}

// SetClinics replaces a user's clinic assignments.
func (s *Service) SetClinics(ctx context.Context, req transport.SetUserClinicsRequest) (transport.UserResponse, error) {
	if err := s.repo.SetClinics(ctx, req.UserID, dedupe(req.ClinicIDs)); err != nil {
		return transport.UserResponse{}, err
	}
	user, err := s.repo.GetByID(ctx, req.UserID)
	if err != nil {
		return transport.UserResponse{}, err
	}
	return toResponse(user), nil
}

// RemoveClinic drops one clinic from a user.
func (s *Service) RemoveClinic(ctx context.Context, userID, clinicID uuid.UUID) error {
	return s.repo.RemoveClinic(ctx, userID, clinicID)
}

// Delete removes the user and its identity-provider account.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if user.FirebaseUID != nil && s.accounts != nil {
		if err := s.accounts.DeleteAccount(ctx, *user.FirebaseUID); err != nil {
			return apperr.Wrap(apperr.KindUpstream, "failed to delete identity account", err)
		}
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) ensureAccount(ctx context.Context, addr, name string) (string, bool, error) {
	uid, err := s.accounts.LookupUID(ctx, addr)
	if err == nil {
		return uid, false, nil
	}
	if !errors.Is(err, firebase.ErrUserNotFound) {
		return "", false, apperr.Wrap(apperr.KindUpstream, "failed to look up identity account", err)
	}

	password, err := randomPassword()
	if err != nil {
		return "", false, err
	}
	uid, err = s.accounts.CreateAccount(ctx, firebase.AccountParams{Email: addr, Password: password, DisplayName: name})
	if err != nil {
		return "", false, apperr.Wrap(apperr.KindUpstream, "failed to create identity account", err)
	}
	return uid, true, nil
}

// sendWelcome never fails onboarding; the user already exists at this point.
func (s *Service) sendWelcome(ctx context.Context, user repository.User) bool {
	link, err := s.accounts.PasswordResetLink(ctx, user.Email, s.loginURL())
	if err != nil {
		s.log.Warn("password reset link failed", "email", user.Email, "error", err)
		return false
	}

	err = s.mail.SendWelcomeEmail(ctx, email.WelcomeEmail{
		ToEmail:        user.Email,
		Name:           user.Name,
		SetPasswordURL: link,
		DashboardURL:   s.loginURL(),
	})
	if err != nil {
		s.log.Warn("welcome email failed", "email", user.Email, "error", err)
		return false
	}
	return true
}

func (s *Service) loginURL() string {
	if s.appBaseURL == "" {
		return ""
	}
	return s.appBaseURL + "/login"
}

func randomPassword() (string, error) {
	b := make([]byte, initialPasswordSize)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func normalizeEmail(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func toResponse(u repository.User) transport.UserResponse {
	clinicIDs := u.ClinicIDs
	if clinicIDs == nil {
		clinicIDs = []uuid.UUID{}
	}
	return transport.UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		ClinicIDs: clinicIDs,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
