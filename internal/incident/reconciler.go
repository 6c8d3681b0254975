package incident

import (
	"fmt"
	"log/slog"

	"github.com/respondnow/respondnow/internal/domain"
)

// Reconciliation is the outcome of diffing current role assignments against a
// requested set. PreviousStates/CurrentStates are the string forms written
// into the timeline entry; Snapshot carries the full before/after role lists
// for the entry's additional details.
type Reconciliation struct {
	Roles          []domain.Role
	PreviousStates []string
	CurrentStates  []string
	Snapshot       domain.RoleSnapshot
}

// ReconcileRoles computes the minimal add/remove diff that satisfies the
// requested assignments while keeping at most one active holder per role
// type. Only roles whose type collides with a requested type are evicted;
// roles the caller did not mention are left alone. Requested entries with an
// empty role type or user id are skipped with a warning. Returns
// ErrNoRoleChanges when the request changes nothing.
func ReconcileRoles(current, requested []domain.Role) (*Reconciliation, error) {
	// Index current roles two ways. Last write wins on duplicate types so a
	// previously corrupted list still reconciles deterministically.
	byType := make(map[domain.RoleType]domain.Role, len(current))
	for _, r := range current {
		if r.RoleType == "" {
			continue
		}
		byType[r.RoleType] = r
	}

	typesByUser := make(map[string]map[domain.RoleType]bool, len(current))
	for _, r := range current {
		uid := r.UserDetails.UserID
		if uid == "" {
			continue
		}
		if typesByUser[uid] == nil {
			typesByUser[uid] = make(map[domain.RoleType]bool)
		}
		typesByUser[uid][r.RoleType] = true
	}

	snapshot := make([]domain.Role, len(current))
	copy(snapshot, current)

	working := make([]domain.Role, len(current))
	copy(working, current)

	var previousStates, currentStates []string

	for _, req := range requested {
		uid := req.UserDetails.UserID
		if req.RoleType == "" || uid == "" {
			slog.Warn("skipping malformed role assignment",
				"role_type", req.RoleType,
				"user_id", uid,
			)
			continue
		}

		if held, ok := byType[req.RoleType]; ok && held.UserDetails.UserID != uid {
			working = removeRole(working, req.RoleType, held.UserDetails.UserID)
			previousStates = append(previousStates, roleState(held))
			delete(byType, req.RoleType)
			slog.Info("role holder replaced",
				"role_type", req.RoleType,
				"previous_user", held.UserDetails.UserID,
			)
		}

		if !typesByUser[uid][req.RoleType] {
			working = append(working, req)
			currentStates = append(currentStates, roleState(req))
			byType[req.RoleType] = req
			if typesByUser[uid] == nil {
				typesByUser[uid] = make(map[domain.RoleType]bool)
			}
			typesByUser[uid][req.RoleType] = true
			slog.Info("role assigned",
				"role_type", req.RoleType,
				"user_id", uid,
			)
		}
	}

	if len(previousStates) == 0 && len(currentStates) == 0 {
		return nil, ErrNoRoleChanges
	}

	return &Reconciliation{
		Roles:          working,
		PreviousStates: previousStates,
		CurrentStates:  currentStates,
		Snapshot: domain.RoleSnapshot{
			PreviousState: snapshot,
			CurrentState:  working,
		},
	}, nil
}

// roleState is the closed string form of an assignment used in audit entries.
func roleState(r domain.Role) string {
	return fmt.Sprintf("%s:%s", r.RoleType, r.UserDetails.UserID)
}

func removeRole(roles []domain.Role, t domain.RoleType, userID string) []domain.Role {
	out := roles[:0]
	for _, r := range roles {
		if r.RoleType == t && r.UserDetails.UserID == userID {
			continue
		}
		out = append(out, r)
	}
	return out
}
