package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Tables that support bulk ownership reassignment. The table name is always
// taken from this set, never from caller input.
const (
	tableCustomers       = "customers"
	tableContracts       = "customer_contracts"
	tableLeads           = "customer_leads"
	tableTasks           = "customer_intervention_tasks"
	tableMeetings        = "user_meetings"
	tableRecommendations = "customer_recommendations"
)

// ownerIDByName resolves the reassignment target from its display name.
// Display names are not unique; more than one match is ErrAmbiguousOwner
// rather than a silent pick.
func (db *DB) ownerIDByName(ctx context.Context, fullName string) (int64, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT user_id FROM user_info WHERE full_name = $1`, fullName,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: resolve owner by name: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, fmt.Errorf("storage: scan owner id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("storage: resolve owner by name: %w", err)
	}

	switch len(ids) {
	case 0:
		return 0, fmt.Errorf("storage: owner %q: %w", fullName, ErrActorNotFound)
	case 1:
		return ids[0], nil
	default:
		return 0, fmt.Errorf("storage: owner %q matches %d users: %w", fullName, len(ids), ErrAmbiguousOwner)
	}
}

// reassignOwner resolves the target owner once and bulk-updates the owner
// reference of every listed record. Only the owner column changes.
func (db *DB) reassignOwner(ctx context.Context, table, targetFullName string, recordUUIDs []uuid.UUID) error {
	if len(recordUUIDs) == 0 {
		return nil
	}
	ownerID, err := db.ownerIDByName(ctx, targetFullName)
	if err != nil {
		return err
	}

	_, err = db.pool.Exec(ctx,
		`UPDATE `+table+` SET user_id = $2 WHERE uuid = ANY($1)`,
		recordUUIDs, ownerID,
	)
	if err != nil {
		return fmt.Errorf("storage: reassign %s: %w", table, err)
	}
	db.logger.Info("reassigned records", "table", table, "count", len(recordUUIDs))
	return nil
}

// ReassignCustomers transfers customers to the named user.
func (db *DB) ReassignCustomers(ctx context.Context, targetFullName string, ids []uuid.UUID) error {
	return db.reassignOwner(ctx, tableCustomers, targetFullName, ids)
}

// ReassignContracts transfers contracts to the named user.
func (db *DB) ReassignContracts(ctx context.Context, targetFullName string, ids []uuid.UUID) error {
	return db.reassignOwner(ctx, tableContracts, targetFullName, ids)
}

// ReassignLeads transfers leads to the named user.
func (db *DB) ReassignLeads(ctx context.Context, targetFullName string, ids []uuid.UUID) error {
	return db.reassignOwner(ctx, tableLeads, targetFullName, ids)
}

// ReassignTasks transfers intervention tasks to the named user.
func (db *DB) ReassignTasks(ctx context.Context, targetFullName string, ids []uuid.UUID) error {
	return db.reassignOwner(ctx, tableTasks, targetFullName, ids)
}

// ReassignMeetings transfers meetings to the named user.
func (db *DB) ReassignMeetings(ctx context.Context, targetFullName string, ids []uuid.UUID) error {
	return db.reassignOwner(ctx, tableMeetings, targetFullName, ids)
}

// ReassignRecommendations transfers recommendations to the named user.
func (db *DB) ReassignRecommendations(ctx context.Context, targetFullName string, ids []uuid.UUID) error {
	return db.reassignOwner(ctx, tableRecommendations, targetFullName, ids)
}
