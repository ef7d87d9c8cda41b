package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fieldbook-crm/fieldbook/internal/model"
)

// CreateInterventionTask resolves the customer and attaches a collections
// follow-up to it in one transaction. Returns the task's public identifier.
func (db *DB) CreateInterventionTask(ctx context.Context, actorUUID uuid.UUID, customer model.Customer, task model.InterventionTask) (uuid.UUID, error) {
	ownerID, err := db.userIDByUUID(ctx, actorUUID)
	if err != nil {
		return uuid.Nil, err
	}

	var taskUUID uuid.UUID
	for attempt := 0; attempt < 2; attempt++ {
		taskUUID, err = db.createTaskInTx(ctx, ownerID, customer, task)
		if err == nil || !isUniqueViolation(err) {
			return taskUUID, err
		}
	}
	return uuid.Nil, fmt.Errorf("storage: create intervention task: %w", err)
}

func (db *DB) createTaskInTx(ctx context.Context, ownerID int64, customer model.Customer, task model.InterventionTask) (uuid.UUID, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("storage: begin create task tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	customerID, _, err := db.resolveCustomerTx(ctx, tx, ownerID, customer)
	if err != nil {
		return uuid.Nil, err
	}

	var taskUUID uuid.UUID
	err = tx.QueryRow(ctx,
		`INSERT INTO customer_intervention_tasks (contract_number, product_name, outstanding_days,
		                                          balance, processing_deadline, comment, status,
		                                          customer_id, user_id, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING uuid`,
		task.ContractNumber, task.ProductName, task.OutstandingDays,
		task.Balance, task.ProcessingDeadline, task.Comment, string(task.Status),
		customerID, ownerID, task.CreatedBy,
	).Scan(&taskUUID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("storage: insert intervention task: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("storage: commit create task tx: %w", err)
	}
	return taskUUID, nil
}

// ListTasksByOwner returns a user's intervention tasks joined with the
// decrypted contact fields of their customers.
func (db *DB) ListTasksByOwner(ctx context.Context, ownerUUID uuid.UUID) ([]model.TaskListItem, error) {
	ownerID, err := db.userIDByUUID(ctx, ownerUUID)
	if err != nil {
		return nil, err
	}

	rows, err := db.pool.Query(ctx,
		`SELECT it.uuid, it.contract_number, it.product_name, it.outstanding_days,
		        it.balance, it.processing_deadline, it.comment, it.status, it.created_by,
		        c.full_name,
		        c.phone_number_enc, c.phone_number_nonce,
		        c.email_enc, c.email_nonce,
		        c.address_enc, c.address_nonce
		 FROM customers c
		 JOIN customer_intervention_tasks it ON it.customer_id = c.id
		 WHERE it.user_id = $1`, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list intervention tasks: %w", err)
	}
	defer rows.Close()

	var items []model.TaskListItem
	for rows.Next() {
		var (
			it                   model.TaskListItem
			status               string
			phoneEnc, phoneNonce []byte
			emailEnc, emailNonce []byte
			addrEnc, addrNonce   []byte
		)
		if err := rows.Scan(&it.UUID, &it.ContractNumber, &it.ProductName, &it.OutstandingDays,
			&it.Balance, &it.ProcessingDeadline, &it.Comment, &status, &it.CreatedBy,
			&it.CustomerName,
			&phoneEnc, &phoneNonce, &emailEnc, &emailNonce, &addrEnc, &addrNonce,
		); err != nil {
			return nil, fmt.Errorf("storage: scan intervention task: %w", err)
		}
		if it.Status, err = model.ParseTaskStatus(status); err != nil {
			return nil, fmt.Errorf("storage: scan intervention task: %w", err)
		}
		it.CustomerPhone = db.codec.Open(phoneEnc, phoneNonce)
		it.CustomerEmail = db.codec.Open(emailEnc, emailNonce)
		it.CustomerAddr = db.codec.Open(addrEnc, addrNonce)
		items = append(items, it)
	}
	return items, rows.Err()
}

// TasksByCustomer returns every intervention task attached to one customer.
func (db *DB) TasksByCustomer(ctx context.Context, customerUUID uuid.UUID) ([]model.InterventionTask, error) {
	customerID, err := db.customerIDByUUID(ctx, customerUUID)
	if err != nil {
		return nil, err
	}

	rows, err := db.pool.Query(ctx,
		`SELECT uuid, contract_number, product_name, outstanding_days, balance,
		        processing_deadline, comment, status, created_by
		 FROM customer_intervention_tasks WHERE customer_id = $1`, customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: tasks by customer: %w", err)
	}
	defer rows.Close()

	var tasks []model.InterventionTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// GetInterventionTask returns one task by public identifier.
func (db *DB) GetInterventionTask(ctx context.Context, taskUUID uuid.UUID) (model.InterventionTask, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT uuid, contract_number, product_name, outstanding_days, balance,
		        processing_deadline, comment, status, created_by
		 FROM customer_intervention_tasks WHERE uuid = $1`, taskUUID,
	)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.InterventionTask{}, fmt.Errorf("storage: intervention task %s: %w", taskUUID, ErrNotFound)
		}
		return model.InterventionTask{}, err
	}
	return t, nil
}

// TaskCustomerUUID returns the public identifier of a task's customer.
func (db *DB) TaskCustomerUUID(ctx context.Context, taskUUID uuid.UUID) (uuid.UUID, error) {
	var customerUUID uuid.UUID
	err := db.pool.QueryRow(ctx,
		`SELECT c.uuid
		 FROM customers c
		 JOIN customer_intervention_tasks it ON c.id = it.customer_id
		 WHERE it.uuid = $1`, taskUUID,
	).Scan(&customerUUID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("storage: intervention task %s: %w", taskUUID, ErrNotFound)
		}
		return uuid.Nil, fmt.Errorf("storage: task customer uuid: %w", err)
	}
	return customerUUID, nil
}

// UpdateInterventionTask replaces a task's fields.
func (db *DB) UpdateInterventionTask(ctx context.Context, taskUUID uuid.UUID, t model.InterventionTask) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE customer_intervention_tasks
		 SET contract_number = $2,
		     product_name = $3,
		     outstanding_days = $4,
		     balance = $5,
		     processing_deadline = $6,
		     comment = $7,
		     status = $8
		 WHERE uuid = $1`,
		taskUUID, t.ContractNumber, t.ProductName, t.OutstandingDays,
		t.Balance, t.ProcessingDeadline, t.Comment, string(t.Status),
	)
	if err != nil {
		return fmt.Errorf("storage: update intervention task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: intervention task %s: %w", taskUUID, ErrNotFound)
	}
	return nil
}

// DeleteTasks removes intervention tasks by public identifier.
func (db *DB) DeleteTasks(ctx context.Context, taskUUIDs []uuid.UUID) error {
	if len(taskUUIDs) == 0 {
		return nil
	}
	_, err := db.pool.Exec(ctx,
		`DELETE FROM customer_intervention_tasks WHERE uuid = ANY($1)`, taskUUIDs,
	)
	if err != nil {
		return fmt.Errorf("storage: delete intervention tasks: %w", err)
	}
	return nil
}

func scanTask(row rowScanner) (model.InterventionTask, error) {
	var (
		t      model.InterventionTask
		status string
	)
	if err := row.Scan(&t.UUID, &t.ContractNumber, &t.ProductName, &t.OutstandingDays,
		&t.Balance, &t.ProcessingDeadline, &t.Comment, &status, &t.CreatedBy,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.InterventionTask{}, err
		}
		return model.InterventionTask{}, fmt.Errorf("storage: scan intervention task: %w", err)
	}
	var err error
	if t.Status, err = model.ParseTaskStatus(status); err != nil {
		return model.InterventionTask{}, fmt.Errorf("storage: scan intervention task: %w", err)
	}
	return t, nil
}
