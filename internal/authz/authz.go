// Package authz implements the role hierarchy gate. Roles form a strict
// total order (Agent < Manager < Leader) and every guarded operation states
// the minimum role it needs. The gate re-reads the actor's role on each call
// so a demotion takes effect immediately, never on session expiry.
package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/fieldbook-crm/fieldbook/internal/model"
)

// ErrForbidden is returned when the actor's role rank is below the required
// minimum.
var ErrForbidden = errors.New("authz: forbidden")

// RoleSource resolves the current role of a user. *storage.DB satisfies it;
// tests substitute a fixture.
type RoleSource interface {
	UserRole(ctx context.Context, userUUID uuid.UUID) (model.UserRole, error)
}

// RequireMinRole fetches the actor's current role and succeeds iff it ranks
// at least minRole. Lookup failures propagate unchanged so callers can map
// an unknown actor separately from an insufficient role.
func RequireMinRole(ctx context.Context, roles RoleSource, actorUUID uuid.UUID, minRole model.UserRole) error {
	role, err := roles.UserRole(ctx, actorUUID)
	if err != nil {
		return err
	}
	if !model.RoleAtLeast(role, minRole) {
		return fmt.Errorf("role %s below required %s: %w", role, minRole, ErrForbidden)
	}
	return nil
}
