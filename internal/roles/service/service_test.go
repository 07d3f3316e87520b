package service

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"dim_dashboard_backend/internal/roles/repository"
	"dim_dashboard_backend/internal/roles/transport"
	"dim_dashboard_backend/platform/apperr"
	"dim_dashboard_backend/platform/logger"
)

type fakeRepo struct {
	roles    map[uuid.UUID]repository.Role
	users    map[string]int
	upserted []repository.UpsertParams
}

func newFakeRepo(roles ...repository.Role) *fakeRepo {
	f := &fakeRepo{roles: map[uuid.UUID]repository.Role{}, users: map[string]int{}}
	for _, r := range roles {
		f.roles[r.ID] = r
	}
	return f
}

func (f *fakeRepo) List(context.Context) ([]repository.Role, error) {
	out := make([]repository.Role, 0, len(f.roles))
	for _, r := range f.roles {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Role, error) {
	if r, ok := f.roles[id]; ok {
		return r, nil
	}
	return repository.Role{}, apperr.NotFound("role not found")
}

func (f *fakeRepo) Upsert(_ context.Context, params repository.UpsertParams) (repository.Role, error) {
	f.upserted = append(f.upserted, params)
	id := uuid.New()
	if params.ID != nil {
		id = *params.ID
	}
	role := repository.Role{ID: id, Name: params.Name, Permissions: params.Permissions}
	f.roles[id] = role
	return role, nil
}

func (f *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.roles, id)
	return nil
}

func (f *fakeRepo) CountUsers(_ context.Context, name string) (int, error) {
	return f.users[name], nil
}

func TestUpsertNormalizes(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo, logger.New("test"))

	resp, err := svc.Upsert(context.Background(), transport.UpsertRoleRequest{
		Name:        "  Manager ",
		Permissions: []string{"sync.run", " reports.read", "sync.run", ""},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Name != "manager" {
		t.Fatalf("expected lowercased name, got %q", resp.Name)
	}
	if len(resp.Permissions) != 2 || resp.Permissions[0] != "reports.read" {
		t.Fatalf("expected sorted unique permissions, got %v", resp.Permissions)
	}
}

func TestAdminRoleIsProtected(t *testing.T) {
	admin := repository.Role{ID: uuid.New(), Name: "admin"}
	repo := newFakeRepo(admin)
	svc := New(repo, logger.New("test"))

	if _, err := svc.Upsert(context.Background(), transport.UpsertRoleRequest{ID: &admin.ID, Name: "root"}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected rename to be rejected, got %v", err)
	}
	if err := svc.Delete(context.Background(), admin.ID); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected delete to be rejected, got %v", err)
	}
}

func TestDeleteRoleInUse(t *testing.T) {
	role := repository.Role{ID: uuid.New(), Name: "viewer"}
	repo := newFakeRepo(role)
	repo.users["viewer"] = 2
	svc := New(repo, logger.New("test"))

	if err := svc.Delete(context.Background(), role.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	repo.users["viewer"] = 0
	if err := svc.Delete(context.Background(), role.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := repo.roles[role.ID]; ok {
		t.Fatalf("expected role to be deleted")
	}
}
