package adapters

import (
	"context"

	"github.com/google/uuid"

	authsvc "dim_dashboard_backend/internal/auth/service"
	usersrepo "dim_dashboard_backend/internal/users/repository"
)

// UserDirectory implements auth/service.UserDirectory using the users repository.
type UserDirectory struct {
	repo usersrepo.UserReader
}

// NewUserDirectory creates a new adapter.
func NewUserDirectory(repo usersrepo.UserReader) *UserDirectory {
	return &UserDirectory{repo: repo}
}

func (a *UserDirectory) FindByEmail(ctx context.Context, email string) (authsvc.Principal, error) {
	user, err := a.repo.GetByEmail(ctx, email)
	if err != nil {
		return authsvc.Principal{}, err
	}
	return toPrincipal(user), nil
}

func (a *UserDirectory) FindByID(ctx context.Context, id uuid.UUID) (authsvc.Principal, error) {
	user, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return authsvc.Principal{}, err
	}
	return toPrincipal(user), nil
}

func toPrincipal(u usersrepo.User) authsvc.Principal {
	clinicIDs := u.ClinicIDs
	if clinicIDs == nil {
		clinicIDs = []uuid.UUID{}
	}
	return authsvc.Principal{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		ClinicIDs: clinicIDs,
	}
}

// Compile-time check that UserDirectory implements auth/service.UserDirectory.
var _ authsvc.UserDirectory = (*UserDirectory)(nil)
