package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"dim_dashboard_backend/internal/email"
	"dim_dashboard_backend/internal/users/repository"
	"dim_dashboard_backend/internal/users/transport"
	"dim_dashboard_backend/platform/apperr"
	"dim_dashboard_backend/platform/firebase"
	"dim_dashboard_backend/platform/logger"
)

const fmtUnexpectedErr = "unexpected error: %v"

type memoryRepo struct {
	users   map[string]repository.User
	roles   map[string]bool
	deleted []uuid.UUID
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: map[string]repository.User{}, roles: map[string]bool{"admin": true, "user": true}}
}

func (m *memoryRepo) byID(id uuid.UUID) (repository.User, bool) {
	for _, u := range m.users {
		if u.ID == id {
			return u, true
		}
	}
	return repository.User{}, false
}

func (m *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (repository.User, error) {
	if u, ok := m.byID(id); ok {
		return u, nil
	}
	return repository.User{}, apperr.NotFound("user not found")
}

func (m *memoryRepo) GetByEmail(_ context.Context, addr string) (repository.User, error) {
	if u, ok := m.users[addr]; ok {
		return u, nil
	}
	return repository.User{}, apperr.NotFound("user not found")
}

func (m *memoryRepo) List(context.Context) ([]repository.User, error) {
	out := make([]repository.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *memoryRepo) AssignedClinicIDs(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	u, _ := m.byID(userID)
	return u.ClinicIDs, nil
}

func (m *memoryRepo) RoleExists(_ context.Context, name string) (bool, error) {
	return m.roles[name], nil
}

func (m *memoryRepo) Upsert(_ context.Context, params repository.UpsertParams) (repository.User, error) {
	u, ok := m.users[params.Email]
	if !ok {
		u = repository.User{ID: uuid.New(), Email: params.Email, CreatedAt: time.Now()}
	}
	if params.Name != "" {
		u.Name = params.Name
	}
	u.Role = params.Role
	if params.FirebaseUID != nil {
		u.FirebaseUID = params.FirebaseUID
	}
	m.users[params.Email] = u
	return u, nil
}

func (m *memoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	u, ok := m.byID(id)
	if !ok {
		return apperr.NotFound("user not found")
	}
	delete(m.users, u.Email)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *memoryRepo) SetClinics(_ context.Context, userID uuid.UUID, clinicIDs []uuid.UUID) error {
	u, ok := m.byID(userID)
	if !ok {
		return apperr.NotFound("user not found")
	}
	u.ClinicIDs = clinicIDs
	m.users[u.Email] = u
	return nil
}

func (m *memoryRepo) RemoveClinic(context.Context, uuid.UUID, uuid.UUID) error { return nil }

type fakeAccounts struct {
	existing  map[string]string
	created   []firebase.AccountParams
	deleted   []string
	linkErr   error
	createErr error
}

func (f *fakeAccounts) LookupUID(_ context.Context, addr string) (string, error) {
	if uid, ok := f.existing[addr]; ok {
		return uid, nil
	}
	return "", firebase.ErrUserNotFound
}

func (f *fakeAccounts) CreateAccount(_ context.Context, params firebase.AccountParams) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, params)
	return "uid-" + params.Email, nil
}

func (f *fakeAccounts) DeleteAccount(_ context.Context, uid string) error {
	f.deleted = append(f.deleted, uid)
	return nil
}

func (f *fakeAccounts) PasswordResetLink(_ context.Context, addr, continueURL string) (string, error) {
	if f.linkErr != nil {
		return "", f.linkErr
	}
	return "https://auth.example.com/reset?email=" + addr + "&continue=" + continueURL, nil
}

type recordingMailer struct {
	sent []email.WelcomeEmail
}

func (r *recordingMailer) SendWelcomeEmail(_ context.Context, mail email.WelcomeEmail) error {
	r.sent = append(r.sent, mail)
	return nil
}

func TestOnboardCreatesAccountAndSendsWelcome(t *testing.T) {
	repo := newMemoryRepo()
	accounts := &fakeAccounts{}
	mailer := &recordingMailer{}
	svc := New(repo, accounts, mailer, "https://dash.example.com/", logger.New("test"))
	clinic := uuid.New()

	resp, err := svc.Onboard(context.Background(), transport.OnboardUserRequest{
		Email:     "  Ana@Example.com ",
		Name:      "Ana",
		ClinicIDs: []uuid.UUID{clinic, clinic},
	})
	if err != nil {
		t.Fatalf(fmtUnexpectedErr, err)
	}

	if !resp.Created || !resp.WelcomeSent {
		t.Fatalf("expected created and welcome sent, got %+v", resp)
	}
	if resp.User.Email != "ana@example.com" || resp.User.Role != defaultRole {
		t.Fatalf("unexpected user %+v", resp.User)
	}
	if len(resp.User.ClinicIDs) != 1 {
		t.Fatalf("expected deduplicated clinics, got %v", resp.User.ClinicIDs)
	}
	if len(accounts.created) != 1 || accounts.created[0].Password == "" {
		t.Fatalf("expected one account with a generated password, got %+v", accounts.created)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].DashboardURL != "https://dash.example.com/login" {
		t.Fatalf("unexpected welcome mail %+v", mailer.sent)
	}
}

func TestOnboardExistingAccountUpdatesUser(t *testing.T) {
	repo := newMemoryRepo()
	accounts := &fakeAccounts{existing: map[string]string{"ana@example.com": "uid-1"}}
	svc := New(repo, accounts, &recordingMailer{}, "", logger.New("test"))

	first, err := svc.Onboard(context.Background(), transport.OnboardUserRequest{Email: "ana@example.com"})
	if err != nil {
		t.Fatalf(fmtUnexpectedErr, err)
	}
	second, err := svc.Onboard(context.Background(), transport.OnboardUserRequest{Email: "ana@example.com", Role: "admin"})
	if err != nil {
		t.Fatalf(fmtUnexpectedErr, err)
	}

	if first.Created || second.Created || len(accounts.created) != 0 {
		t.Fatalf("expected existing identity account to be reused")
	}
	if first.User.ID != second.User.ID || second.User.Role != "admin" {
		t.Fatalf("expected same user with updated role, got %+v", second.User)
	}
}

func TestOnboardRejectsUnknownRole(t *testing.T) {
	svc := New(newMemoryRepo(), &fakeAccounts{}, nil, "", logger.New("test"))

	_, err := svc.Onboard(context.Background(), transport.OnboardUserRequest{Email: "a@b.co", Role: "owner"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestOnboardWithoutIdentityProvider(t *testing.T) {
	svc := New(newMemoryRepo(), nil, nil, "", logger.New("test"))

	_, err := svc.Onboard(context.Background(), transport.OnboardUserRequest{Email: "a@b.co"})
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestOnboardSurvivesMailFailure(t *testing.T) {
	accounts := &fakeAccounts{linkErr: errors.New("quota exceeded")}
	svc := New(newMemoryRepo(), accounts, &recordingMailer{}, "", logger.New("test"))

	resp, err := svc.Onboard(context.Background(), transport.OnboardUserRequest{Email: "a@b.co"})
	if err != nil {
		t.Fatalf(fmtUnexpectedErr, err)
	}
	if resp.WelcomeSent {
		t.Fatalf("expected welcomeSent false")
	}
}

func TestOnboardAccountCreationFailureIsUpstream(t *testing.T) {
	svc := New(newMemoryRepo(), &fakeAccounts{createErr: errors.New("boom")}, nil, "", logger.New("test"))

	_, err := svc.Onboard(context.Background(), transport.OnboardUserRequest{Email: "a@b.co"})
	if !apperr.Is(err, apperr.KindUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestDeleteRemovesIdentityAccount(t *testing.T) {
	repo := newMemoryRepo()
	accounts := &fakeAccounts{}
	svc := New(repo, accounts, nil, "", logger.New("test"))

	resp, err := svc.Onboard(context.Background(), transport.OnboardUserRequest{Email: "a@b.co"})
	if err != nil {
		t.Fatalf(fmtUnexpectedErr, err)
	}
	if err := svc.Delete(context.Background(), resp.User.ID); err != nil {
		t.Fatalf(fmtUnexpectedErr, err)
	}
	if len(accounts.deleted) != 1 || accounts.deleted[0] != "uid-a@b.co" {
		t.Fatalf("expected identity account deletion, got %v", accounts.deleted)
	}
	if len(repo.deleted) != 1 {
		t.Fatalf("expected user row deletion")
	}
}
