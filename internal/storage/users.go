package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fieldbook-crm/fieldbook/internal/model"
)

// roleOrderSQL sorts result sets Leader first, then Manager, then Agent.
const roleOrderSQL = `CASE u.user_role WHEN 'Leader' THEN 1 WHEN 'Manager' THEN 2 WHEN 'Agent' THEN 3 END`

// userIDByUUID resolves the internal id behind a user's public identifier.
// Returns ErrActorNotFound so callers can fail before any write happens.
func (db *DB) userIDByUUID(ctx context.Context, userUUID uuid.UUID) (int64, error) {
	var id int64
	err := db.pool.QueryRow(ctx, `SELECT id FROM users WHERE uuid = $1`, userUUID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("storage: user %s: %w", userUUID, ErrActorNotFound)
		}
		return 0, fmt.Errorf("storage: resolve user id: %w", err)
	}
	return id, nil
}

// CreateUser inserts a new user and its profile row atomically. The role is
// inferred from the manager link: users registered under a manager start as
// Agent, users without one start as Manager. A user with the same email or
// username is rejected with ErrAlreadyExists.
func (db *DB) CreateUser(ctx context.Context, user model.User, passwordHash string) error {
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 OR username = $2)`,
		user.Email, user.Username,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("storage: check user exists: %w", err)
	}
	if exists {
		return fmt.Errorf("storage: user %s: %w", user.Username, ErrAlreadyExists)
	}

	var managerID *int64
	if user.ManagerID != nil {
		id, err := db.userIDByUUID(ctx, *user.ManagerID)
		if err != nil {
			return fmt.Errorf("storage: resolve manager: %w", err)
		}
		managerID = &id
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("storage: begin create user tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var userID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO users (email, username, password, user_role, manager_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		user.Email, user.Username, passwordHash, string(model.InferRole(user.ManagerID)), managerID,
	).Scan(&userID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("storage: user %s: %w", user.Username, ErrAlreadyExists)
		}
		return fmt.Errorf("storage: create user: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO user_info (user_id, full_name, phone_number, hufa_code, agent_code)
		 VALUES ($1, $2, $3, $4, $5)`,
		userID, user.Info.FullName, user.Info.PhoneNumber, user.Info.HufaCode, user.Info.AgentCode,
	); err != nil {
		return fmt.Errorf("storage: create user info: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("storage: commit create user tx: %w", err)
	}
	return nil
}

// GetUserByUsername retrieves a user's identity and password hash for sign-in.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (model.User, string, error) {
	var (
		u        model.User
		role     string
		passHash string
	)
	err := db.pool.QueryRow(ctx,
		`SELECT id, uuid, email, username, password, user_role, created_at
		 FROM users WHERE username = $1`, username,
	).Scan(&u.ID, &u.UUID, &u.Email, &u.Username, &passHash, &role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, "", fmt.Errorf("storage: user %s: %w", username, ErrNotFound)
		}
		return model.User{}, "", fmt.Errorf("storage: get user by username: %w", err)
	}
	u.Role, err = model.ParseUserRole(role)
	if err != nil {
		return model.User{}, "", fmt.Errorf("storage: get user by username: %w", err)
	}
	return u, passHash, nil
}

// UserRole returns the current role of a user. Re-read on every authorization
// check, never cached across requests.
func (db *DB) UserRole(ctx context.Context, userUUID uuid.UUID) (model.UserRole, error) {
	var role string
	err := db.pool.QueryRow(ctx, `SELECT user_role FROM users WHERE uuid = $1`, userUUID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("storage: user %s: %w", userUUID, ErrActorNotFound)
		}
		return "", fmt.Errorf("storage: get user role: %w", err)
	}
	parsed, err := model.ParseUserRole(role)
	if err != nil {
		return "", fmt.Errorf("storage: get user role: %w", err)
	}
	return parsed, nil
}

// GetUserProfile returns a user's identity and profile info.
func (db *DB) GetUserProfile(ctx context.Context, userUUID uuid.UUID) (model.User, error) {
	var (
		u    model.User
		role string
	)
	err := db.pool.QueryRow(ctx,
		`SELECT u.uuid, u.email, u.username, u.user_role, u.created_at,
		        ui.full_name, ui.phone_number, ui.hufa_code, ui.agent_code
		 FROM users u
		 JOIN user_info ui ON ui.user_id = u.id
		 WHERE u.uuid = $1`, userUUID,
	).Scan(&u.UUID, &u.Email, &u.Username, &role, &u.CreatedAt,
		&u.Info.FullName, &u.Info.PhoneNumber, &u.Info.HufaCode, &u.Info.AgentCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, fmt.Errorf("storage: user %s: %w", userUUID, ErrNotFound)
		}
		return model.User{}, fmt.Errorf("storage: get user profile: %w", err)
	}
	u.Role, err = model.ParseUserRole(role)
	if err != nil {
		return model.User{}, fmt.Errorf("storage: get user profile: %w", err)
	}
	return u, nil
}

// ListUsers returns every user with profile data, leaders first.
func (db *DB) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT u.uuid, u.email, u.username, u.user_role, u.created_at, m.uuid,
		        ui.full_name, ui.phone_number, ui.hufa_code, ui.agent_code
		 FROM users u
		 JOIN user_info ui ON ui.user_id = u.id
		 LEFT JOIN users m ON m.id = u.manager_id
		 ORDER BY `+roleOrderSQL,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list users: %w", err)
	}
	defer rows.Close()

	return scanUserRows(rows)
}

// SubUsers returns the organization subtree visible to a user. Leaders see
// everyone, managers see themselves and their direct reports, agents see only
// themselves. minRole additionally narrows the result by role rank.
func (db *DB) SubUsers(ctx context.Context, userUUID uuid.UUID, minRole model.UserRole) ([]model.User, error) {
	userID, err := db.userIDByUUID(ctx, userUUID)
	if err != nil {
		return nil, err
	}
	role, err := db.UserRole(ctx, userUUID)
	if err != nil {
		return nil, err
	}

	var scopeSQL string
	switch role {
	case model.RoleLeader:
		scopeSQL = `TRUE`
	case model.RoleManager:
		scopeSQL = `(u.id = $1 OR u.manager_id = $1)`
	default:
		scopeSQL = `u.id = $1`
	}

	rows, err := db.pool.Query(ctx,
		`SELECT u.uuid, u.email, u.username, u.user_role, u.created_at, m.uuid,
		        ui.full_name, ui.phone_number, ui.hufa_code, ui.agent_code
		 FROM users u
		 JOIN user_info ui ON ui.user_id = u.id
		 LEFT JOIN users m ON m.id = u.manager_id
		 WHERE `+scopeSQL+`
		 ORDER BY CASE WHEN u.id = $1 THEN 0 END, `+roleOrderSQL,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: sub users: %w", err)
	}
	defer rows.Close()

	users, err := scanUserRows(rows)
	if err != nil {
		return nil, err
	}

	filtered := users[:0]
	for _, u := range users {
		if model.RoleAtLeast(u.Role, minRole) || u.UUID == userUUID {
			filtered = append(filtered, u)
		}
	}
	return filtered, nil
}

// Managers lists manager and leader names for the manager-assignment picker,
// excluding the requesting user.
func (db *DB) Managers(ctx context.Context, excludeUUID uuid.UUID) ([]model.User, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT u.uuid, u.user_role, ui.full_name
		 FROM users u
		 JOIN user_info ui ON ui.user_id = u.id
		 WHERE u.user_role IN ('Manager', 'Leader') AND u.uuid != $1
		 ORDER BY u.user_role ASC, ui.full_name`,
		excludeUUID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list managers: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var (
			u    model.User
			role string
		)
		if err := rows.Scan(&u.UUID, &role, &u.Info.FullName); err != nil {
			return nil, fmt.Errorf("storage: scan manager: %w", err)
		}
		if u.Role, err = model.ParseUserRole(role); err != nil {
			return nil, fmt.Errorf("storage: scan manager: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUserInfo updates a user's email and profile fields atomically.
// Hufa and agent codes are preserved when the caller sends them empty.
func (db *DB) UpdateUserInfo(ctx context.Context, userUUID uuid.UUID, email string, info model.UserInfo) error {
	userID, err := db.userIDByUUID(ctx, userUUID)
	if err != nil {
		return err
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("storage: begin update user info tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`UPDATE users SET email = $2 WHERE id = $1`, userID, email,
	); err != nil {
		return fmt.Errorf("storage: update user email: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE user_info
		 SET full_name = $2,
		     phone_number = $3,
		     hufa_code = COALESCE(NULLIF($4, ''), hufa_code),
		     agent_code = COALESCE(NULLIF($5, ''), agent_code)
		 WHERE user_id = $1`,
		userID, info.FullName, info.PhoneNumber, info.HufaCode, info.AgentCode,
	); err != nil {
		return fmt.Errorf("storage: update user info: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("storage: commit update user info tx: %w", err)
	}
	return nil
}

// UpdateUserManager moves a user in the organization tree. Assigning a
// manager resets the role to Agent; detaching promotes the user to Manager.
func (db *DB) UpdateUserManager(ctx context.Context, userUUID uuid.UUID, managerUUID *uuid.UUID) error {
	userID, err := db.userIDByUUID(ctx, userUUID)
	if err != nil {
		return err
	}

	if managerUUID == nil {
		if _, err := db.pool.Exec(ctx,
			`UPDATE users SET manager_id = NULL, user_role = 'Manager' WHERE id = $1`, userID,
		); err != nil {
			return fmt.Errorf("storage: detach user manager: %w", err)
		}
		return nil
	}

	managerID, err := db.userIDByUUID(ctx, *managerUUID)
	if err != nil {
		return fmt.Errorf("storage: resolve manager: %w", err)
	}
	if _, err := db.pool.Exec(ctx,
		`UPDATE users SET manager_id = $2, user_role = 'Agent' WHERE id = $1`, userID, managerID,
	); err != nil {
		return fmt.Errorf("storage: update user manager: %w", err)
	}
	return nil
}

// DeleteUser removes a user. The profile row follows via ON DELETE CASCADE;
// reports keep their rows with manager_id reset to NULL. A user who still
// owns customers, contracts or other records cannot be deleted until those
// are reassigned.
func (db *DB) DeleteUser(ctx context.Context, userUUID uuid.UUID) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM users WHERE uuid = $1`, userUUID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("storage: user %s still owns records: %w", userUUID, ErrRecordsAttached)
		}
		return fmt.Errorf("storage: delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: user %s: %w", userUUID, ErrNotFound)
	}
	return nil
}

func scanUserRows(rows pgx.Rows) ([]model.User, error) {
	var users []model.User
	for rows.Next() {
		var (
			u    model.User
			role string
		)
		if err := rows.Scan(&u.UUID, &u.Email, &u.Username, &role, &u.CreatedAt, &u.ManagerID,
			&u.Info.FullName, &u.Info.PhoneNumber, &u.Info.HufaCode, &u.Info.AgentCode,
		); err != nil {
			return nil, fmt.Errorf("storage: scan user: %w", err)
		}
		parsed, err := model.ParseUserRole(role)
		if err != nil {
			return nil, fmt.Errorf("storage: scan user: %w", err)
		}
		u.Role = parsed
		users = append(users, u)
	}
	return users, rows.Err()
}
