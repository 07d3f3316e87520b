package service

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"dim_dashboard_backend/internal/roles/repository"
	"dim_dashboard_backend/internal/roles/transport"
	"dim_dashboard_backend/platform/apperr"
	"dim_dashboard_backend/platform/httpkit"
	"dim_dashboard_backend/platform/logger"
)

// Service provides business logic for roles.
type Service struct {
	repo repository.Repository
	log  *logger.Logger
}

// New creates a new roles service.
func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// List retrieves all roles.
func (s *Service) List(ctx context.Context) (transport.RoleListResponse, error) {
	roles, err := s.repo.List(ctx)
	if err != nil {
		return transport.RoleListResponse{}, err
	}
	resp := transport.RoleListResponse{Items: make([]transport.RoleResponse, 0, len(roles))}
	for _, r := range roles {
		resp.Items = append(resp.Items, toResponse(r))
	}
	return resp, nil
}

// Upsert creates or updates a role. The admin role cannot be renamed.
func (s *Service) Upsert(ctx context.Context, req transport.UpsertRoleRequest) (transport.RoleResponse, error) {
	name := strings.ToLower(strings.TrimSpace(req.Name))
	if name == "" {
		return transport.RoleResponse{}, apperr.Validation("role name is required")
	}

	if req.ID != nil {
		current, err := s.repo.GetByID(ctx, *req.ID)
		if err != nil {
			return transport.RoleResponse{}, err
		}
		if current.Name == httpkit.RoleAdmin && name != httpkit.RoleAdmin {
			return transport.RoleResponse{}, apperr.Validation("the admin role cannot be renamed")
		}
	}

	role, err := s.repo.Upsert(ctx, repository.UpsertParams{
		ID:          req.ID,
		Name:        name,
		Permissions: normalizePermissions(req.Permissions),
	})
	if err != nil {
		return transport.RoleResponse{}, err
	}
	return toResponse(role), nil
}

// Delete removes a role that no user holds. The admin role is permanent.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	role, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if role.Name == httpkit.RoleAdmin {
		return apperr.Validation("the admin role cannot be deleted")
	}

	n, err := s.repo.CountUsers(ctx, role.Name)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.Conflict("role is assigned to users").WithDetails(map[string]int{"users": n})
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("role deleted", "roleId", id, "name", role.Name)
	return nil
}

func normalizePermissions(perms []string) []string {
	seen := make(map[string]struct{}, len(perms))
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func toResponse(r repository.Role) transport.RoleResponse {
	perms := r.Permissions
	if perms == nil {
		perms = []string{}
	}
	return transport.RoleResponse{ID: r.ID, Name: r.Name, Permissions: perms, CreatedAt: r.CreatedAt}
}
