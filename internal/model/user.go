// Package model defines the CRM domain entities, their enumerations, and
// validation rules shared by the storage layer and the HTTP server.
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UserRole is the position of a user in the sales hierarchy.
// Roles form a strict total order: Agent < Manager < Leader.
type UserRole string

const (
	RoleAgent   UserRole = "Agent"
	RoleManager UserRole = "Manager"
	RoleLeader  UserRole = "Leader"
)

// RoleRank returns the numeric rank of a role (higher = more privileges).
// Only relative ordering matters; RoleAtLeast uses >= comparison.
func RoleRank(r UserRole) int {
	switch r {
	case RoleLeader:
		return 3
	case RoleManager:
		return 2
	case RoleAgent:
		return 1
	default:
		return 0
	}
}

// RoleAtLeast returns true if role r has at least the privileges of minRole.
func RoleAtLeast(r, minRole UserRole) bool {
	return RoleRank(r) >= RoleRank(minRole)
}

// ParseUserRole parses the canonical stored spelling of a role.
// An unrecognized value is a data-integrity error, never silently defaulted.
func ParseUserRole(s string) (UserRole, error) {
	switch UserRole(s) {
	case RoleAgent, RoleManager, RoleLeader:
		return UserRole(s), nil
	default:
		return "", fmt.Errorf("model: unknown user role %q", s)
	}
}

// User is an authenticated member of the sales organization.
// ManagerID links the organization tree: a Leader has no manager, a Manager
// may report to a Leader, and an Agent reports to a Manager or Leader.
type User struct {
	ID        int64      `json:"-"`
	UUID      uuid.UUID  `json:"uuid"`
	Email     string     `json:"email"`
	Username  string     `json:"username"`
	Role      UserRole   `json:"role"`
	ManagerID *uuid.UUID `json:"manager_uuid,omitempty"`
	Info      UserInfo   `json:"info"`
	CreatedAt time.Time  `json:"created_at"`
}

// UserInfo is profile data stored beside the credential row.
type UserInfo struct {
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	HufaCode    string `json:"hufa_code,omitempty"`
	AgentCode   string `json:"agent_code,omitempty"`
}

// InferRole derives the role of a newly created user from the organization
// tree: users registered without a manager start as Manager, users under a
// manager start as Agent. Leaders are promoted explicitly, never at creation.
func InferRole(managerID *uuid.UUID) UserRole {
	if managerID != nil {
		return RoleAgent
	}
	return RoleManager
}
