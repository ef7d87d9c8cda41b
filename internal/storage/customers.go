package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fieldbook-crm/fieldbook/internal/model"
)

// customerIDByUUID resolves a customer's internal id from its public identifier.
func (db *DB) customerIDByUUID(ctx context.Context, customerUUID uuid.UUID) (int64, error) {
	var id int64
	err := db.pool.QueryRow(ctx, `SELECT id FROM customers WHERE uuid = $1`, customerUUID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("storage: customer %s: %w", customerUUID, ErrNotFound)
		}
		return 0, fmt.Errorf("storage: resolve customer id: %w", err)
	}
	return id, nil
}

// resolveCustomerTx is the find-or-create protocol behind every write that
// references "a customer". It searches the blind indexes of email and phone
// organization-wide; a match wins and the fresh payload is discarded (first
// writer wins), otherwise a new encrypted row is inserted owned by ownerID.
// Runs inside the caller's transaction. A concurrent insert of the same
// person surfaces as a unique violation on the hash indexes; the caller
// retries the whole transaction and the re-lookup then finds the row.
func (db *DB) resolveCustomerTx(ctx context.Context, tx pgx.Tx, ownerID int64, c model.Customer) (int64, bool, error) {
	if err := c.Validate(); err != nil {
		return 0, false, err
	}

	var id int64
	err := tx.QueryRow(ctx,
		`SELECT id FROM customers WHERE email_hash = $1 OR phone_number_hash = $2`,
		db.codec.Index(c.Email), db.codec.Index(c.PhoneNumber),
	).Scan(&id)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, fmt.Errorf("storage: customer dedup lookup: %w", err)
	}

	email, err := db.codec.SealIndexed(c.Email)
	if err != nil {
		return 0, false, fmt.Errorf("storage: seal customer email: %w", err)
	}
	phone, err := db.codec.SealIndexed(c.PhoneNumber)
	if err != nil {
		return 0, false, fmt.Errorf("storage: seal customer phone: %w", err)
	}
	address, err := db.codec.Seal(c.Address)
	if err != nil {
		return 0, false, fmt.Errorf("storage: seal customer address: %w", err)
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO customers (full_name,
		                        phone_number_enc, phone_number_nonce, phone_number_hash,
		                        email_enc, email_nonce, email_hash,
		                        address_enc, address_nonce,
		                        comment, user_id, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id`,
		c.FullName,
		phone.Ciphertext, phone.Nonce, phone.Hash,
		email.Ciphertext, email.Nonce, email.Hash,
		address.Ciphertext, address.Nonce,
		c.Comment, ownerID, c.CreatedBy,
	).Scan(&id)
	if err != nil {
		return 0, false, fmt.Errorf("storage: insert customer: %w", err)
	}
	return id, true, nil
}

// ResolveCustomer finds an existing customer by the blind indexes of the
// incoming email/phone or creates a new encrypted row owned by the acting
// user. Returns the internal customer id and whether a row was created.
func (db *DB) ResolveCustomer(ctx context.Context, actorUUID uuid.UUID, c model.Customer) (int64, bool, error) {
	ownerID, err := db.userIDByUUID(ctx, actorUUID)
	if err != nil {
		return 0, false, err
	}

	// One retry: a concurrent request inserting the same person aborts this
	// transaction with a unique violation, after which the lookup succeeds.
	// Serialization and deadlock conflicts are retried inside WithRetry
	// before the unique-violation handling applies.
	var (
		id      int64
		created bool
	)
	for attempt := 0; attempt < 2; attempt++ {
		err = WithRetry(ctx, 2, 20*time.Millisecond, func() error {
			var txErr error
			id, created, txErr = db.resolveCustomerInTx(ctx, ownerID, c)
			return txErr
		})
		if err == nil || !isUniqueViolation(err) {
			return id, created, err
		}
		db.logger.Debug("customer dedup raced, retrying lookup", "email_present", c.Email != "")
	}
	return 0, false, fmt.Errorf("storage: resolve customer: %w", err)
}

func (db *DB) resolveCustomerInTx(ctx context.Context, ownerID int64, c model.Customer) (int64, bool, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("storage: begin resolve customer tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id, created, err := db.resolveCustomerTx(ctx, tx, ownerID, c)
	if err != nil {
		return 0, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, false, fmt.Errorf("storage: commit resolve customer tx: %w", err)
	}
	return id, created, nil
}

// GetCustomer returns one customer with sensitive fields decrypted.
func (db *DB) GetCustomer(ctx context.Context, customerUUID uuid.UUID) (model.Customer, error) {
	var (
		c                     model.Customer
		phoneEnc, phoneNonce  []byte
		emailEnc, emailNonce  []byte
		addrEnc, addrNonce    []byte
	)
	err := db.pool.QueryRow(ctx,
		`SELECT uuid, full_name,
		        phone_number_enc, phone_number_nonce,
		        email_enc, email_nonce,
		        address_enc, address_nonce,
		        comment, user_id, created_by
		 FROM customers WHERE uuid = $1`, customerUUID,
	).Scan(&c.UUID, &c.FullName,
		&phoneEnc, &phoneNonce, &emailEnc, &emailNonce, &addrEnc, &addrNonce,
		&c.Comment, &c.OwnerID, &c.CreatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Customer{}, fmt.Errorf("storage: customer %s: %w", customerUUID, ErrNotFound)
		}
		return model.Customer{}, fmt.Errorf("storage: get customer: %w", err)
	}
	c.PhoneNumber = db.codec.Open(phoneEnc, phoneNonce)
	c.Email = db.codec.Open(emailEnc, emailNonce)
	c.Address = db.codec.Open(addrEnc, addrNonce)
	return c, nil
}

// ListCustomersByOwner returns the customers owned by one user, decrypted.
func (db *DB) ListCustomersByOwner(ctx context.Context, ownerUUID uuid.UUID) ([]model.Customer, error) {
	ownerID, err := db.userIDByUUID(ctx, ownerUUID)
	if err != nil {
		return nil, err
	}

	rows, err := db.pool.Query(ctx,
		`SELECT uuid, full_name,
		        phone_number_enc, phone_number_nonce,
		        email_enc, email_nonce,
		        address_enc, address_nonce,
		        comment, user_id, created_by
		 FROM customers WHERE user_id = $1`, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list customers: %w", err)
	}
	defer rows.Close()

	var customers []model.Customer
	for rows.Next() {
		var (
			c                    model.Customer
			phoneEnc, phoneNonce []byte
			emailEnc, emailNonce []byte
			addrEnc, addrNonce   []byte
		)
		if err := rows.Scan(&c.UUID, &c.FullName,
			&phoneEnc, &phoneNonce, &emailEnc, &emailNonce, &addrEnc, &addrNonce,
			&c.Comment, &c.OwnerID, &c.CreatedBy,
		); err != nil {
			return nil, fmt.Errorf("storage: scan customer: %w", err)
		}
		c.PhoneNumber = db.codec.Open(phoneEnc, phoneNonce)
		c.Email = db.codec.Open(emailEnc, emailNonce)
		c.Address = db.codec.Open(addrEnc, addrNonce)
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// UpdateCustomer re-encrypts a customer's sensitive fields. Fields the caller
// leaves empty keep their previous decrypted value; everything sensitive is
// rewritten with fresh nonces either way.
func (db *DB) UpdateCustomer(ctx context.Context, customerUUID uuid.UUID, c model.Customer) error {
	existing, err := db.GetCustomer(ctx, customerUUID)
	if err != nil {
		return err
	}
	if c.FullName == "" {
		c.FullName = existing.FullName
	}
	if c.PhoneNumber == "" {
		c.PhoneNumber = existing.PhoneNumber
	}
	if c.Email == "" {
		c.Email = existing.Email
	}
	if c.Address == "" {
		c.Address = existing.Address
	}

	email, err := db.codec.SealIndexed(c.Email)
	if err != nil {
		return fmt.Errorf("storage: seal customer email: %w", err)
	}
	phone, err := db.codec.SealIndexed(c.PhoneNumber)
	if err != nil {
		return fmt.Errorf("storage: seal customer phone: %w", err)
	}
	address, err := db.codec.Seal(c.Address)
	if err != nil {
		return fmt.Errorf("storage: seal customer address: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`UPDATE customers
		 SET full_name = $2,
		     phone_number_enc = $3, phone_number_nonce = $4, phone_number_hash = $5,
		     email_enc = $6, email_nonce = $7, email_hash = $8,
		     address_enc = $9, address_nonce = $10
		 WHERE uuid = $1`,
		customerUUID, c.FullName,
		phone.Ciphertext, phone.Nonce, phone.Hash,
		email.Ciphertext, email.Nonce, email.Hash,
		address.Ciphertext, address.Nonce,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("storage: customer contact already in use: %w", ErrAlreadyExists)
		}
		return fmt.Errorf("storage: update customer: %w", err)
	}
	return nil
}

// SaveCustomerComment replaces the free-text comment on a customer.
func (db *DB) SaveCustomerComment(ctx context.Context, customerUUID uuid.UUID, comment string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE customers SET comment = $2 WHERE uuid = $1`, customerUUID, comment,
	)
	if err != nil {
		return fmt.Errorf("storage: save customer comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: customer %s: %w", customerUUID, ErrNotFound)
	}
	return nil
}

// DeleteCustomers removes customers by public identifier. Dependent
// contracts, leads and tasks follow via ON DELETE CASCADE.
func (db *DB) DeleteCustomers(ctx context.Context, customerUUIDs []uuid.UUID) error {
	if len(customerUUIDs) == 0 {
		return nil
	}
	_, err := db.pool.Exec(ctx,
		`DELETE FROM customers WHERE uuid = ANY($1)`, customerUUIDs,
	)
	if err != nil {
		return fmt.Errorf("storage: delete customers: %w", err)
	}
	return nil
}
