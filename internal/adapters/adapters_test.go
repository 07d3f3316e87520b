package adapters

import (
	"context"
	"testing"

	"github.com/google/uuid"

	clinicsrepo "dim_dashboard_backend/internal/clinics/repository"
	usersrepo "dim_dashboard_backend/internal/users/repository"
	"dim_dashboard_backend/platform/apperr"
)

type clinicTable struct {
	rows   []clinicsrepo.Clinic
	params []clinicsrepo.ListParams
}

func (c *clinicTable) GetByID(_ context.Context, id uuid.UUID) (clinicsrepo.Clinic, error) {
	for _, row := range c.rows {
		if row.ID == id {
			return row, nil
		}
	}
	return clinicsrepo.Clinic{}, apperr.NotFound("clinic not found")
}

func (c *clinicTable) List(_ context.Context, params clinicsrepo.ListParams) ([]clinicsrepo.Clinic, error) {
	c.params = append(c.params, params)
	out := make([]clinicsrepo.Clinic, 0, len(c.rows))
	for _, row := range c.rows {
		if params.SelectedOnly && !row.Selected {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func TestClinicSyncSourceMapsCredentials(t *testing.T) {
	selected := clinicsrepo.Clinic{ID: uuid.New(), Name: "North", APIToken: "pit-1", LocationID: "loc-1", PipelineID: "pipe-1", Timezone: "Europe/Amsterdam", Selected: true}
	idle := clinicsrepo.Clinic{ID: uuid.New(), Name: "South", APIToken: "pit-2", LocationID: "loc-2"}
	table := &clinicTable{rows: []clinicsrepo.Clinic{selected, idle}}
	source := NewClinicSyncSource(table)

	clinics, err := source.ListSyncable(context.Background(), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clinics) != 1 || clinics[0].ID != selected.ID {
		t.Fatalf("expected only the selected clinic, got %+v", clinics)
	}
	creds := clinics[0].Credentials
	if creds.APIToken != "pit-1" || creds.LocationID != "loc-1" || creds.PipelineID != "pipe-1" {
		t.Fatalf("unexpected credentials %+v", creds)
	}
	if clinics[0].Timezone != "Europe/Amsterdam" {
		t.Fatalf("unexpected timezone %q", clinics[0].Timezone)
	}

	one, err := source.GetForSync(context.Background(), idle.ID)
	if err != nil || one.Name != "South" {
		t.Fatalf("expected unselected clinic on demand, got %+v, %v", one, err)
	}
	if _, err := source.GetForSync(context.Background(), uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type userTable struct {
	usersrepo.UserReader
	byEmail map[string]usersrepo.User
}

func (u userTable) GetByEmail(_ context.Context, email string) (usersrepo.User, error) {
	if user, ok := u.byEmail[email]; ok {
		return user, nil
	}
	return usersrepo.User{}, apperr.NotFound("user not found")
}

func (u userTable) AssignedClinicIDs(context.Context, uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}

func TestUserDirectoryNeverReturnsNilClinics(t *testing.T) {
	user := usersrepo.User{ID: uuid.New(), Email: "a@example.com", Role: "user"}
	dir := NewUserDirectory(userTable{byEmail: map[string]usersrepo.User{user.Email: user}})

	principal, err := dir.FindByEmail(context.Background(), user.Email)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if principal.ClinicIDs == nil || principal.Role != "user" {
		t.Fatalf("unexpected principal %+v", principal)
	}
	if _, err := dir.FindByEmail(context.Background(), "nobody@example.com"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found to pass through, got %v", err)
	}
}

func TestClinicAssignmentsEmptyIsNonNil(t *testing.T) {
	ids, err := NewClinicAssignments(userTable{}).AssignedClinicIDs(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ids == nil || len(ids) != 0 {
		t.Fatalf("expected empty non-nil ids, got %v", ids)
	}
}
