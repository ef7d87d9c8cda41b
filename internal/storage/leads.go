package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fieldbook-crm/fieldbook/internal/model"
)

// CreateLead resolves the customer and attaches a new inquiry to it in one
// transaction.
func (db *DB) CreateLead(ctx context.Context, actorUUID uuid.UUID, customer model.Customer, lead model.Lead) (uuid.UUID, error) {
	ownerID, err := db.userIDByUUID(ctx, actorUUID)
	if err != nil {
		return uuid.Nil, err
	}

	var leadUUID uuid.UUID
	for attempt := 0; attempt < 2; attempt++ {
		leadUUID, err = db.createLeadInTx(ctx, ownerID, customer, lead)
		if err == nil || !isUniqueViolation(err) {
			return leadUUID, err
		}
	}
	return uuid.Nil, fmt.Errorf("storage: create lead: %w", err)
}

func (db *DB) createLeadInTx(ctx context.Context, ownerID int64, customer model.Customer, lead model.Lead) (uuid.UUID, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("storage: begin create lead tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	customerID, _, err := db.resolveCustomerTx(ctx, tx, ownerID, customer)
	if err != nil {
		return uuid.Nil, err
	}

	handledAt := lead.HandledAt
	if handledAt.IsZero() {
		handledAt = time.Now().UTC()
	}

	var leadUUID uuid.UUID
	err = tx.QueryRow(ctx,
		`INSERT INTO customer_leads (lead_type, inquiry_type, lead_status, handle_at, customer_id, user_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING uuid`,
		lead.LeadType, lead.InquiryType, string(lead.Status), handledAt, customerID, ownerID,
	).Scan(&leadUUID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("storage: insert lead: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("storage: commit create lead tx: %w", err)
	}
	return leadUUID, nil
}

// ListLeadsByOwner returns a user's leads joined with the decrypted contact
// fields of their customers, newest first.
func (db *DB) ListLeadsByOwner(ctx context.Context, ownerUUID uuid.UUID) ([]model.LeadListItem, error) {
	ownerID, err := db.userIDByUUID(ctx, ownerUUID)
	if err != nil {
		return nil, err
	}

	rows, err := db.pool.Query(ctx,
		`SELECT cl.uuid, cl.lead_type, cl.inquiry_type, cl.lead_status, cl.handle_at,
		        c.full_name, c.created_by,
		        c.phone_number_enc, c.phone_number_nonce,
		        c.email_enc, c.email_nonce,
		        c.address_enc, c.address_nonce
		 FROM customers c
		 JOIN customer_leads cl ON cl.customer_id = c.id
		 WHERE cl.user_id = $1
		 ORDER BY cl.handle_at DESC`, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list leads: %w", err)
	}
	defer rows.Close()

	var items []model.LeadListItem
	for rows.Next() {
		var (
			it                   model.LeadListItem
			status               string
			phoneEnc, phoneNonce []byte
			emailEnc, emailNonce []byte
			addrEnc, addrNonce   []byte
		)
		if err := rows.Scan(&it.UUID, &it.LeadType, &it.InquiryType, &status, &it.HandledAt,
			&it.CustomerName, &it.CreatedBy,
			&phoneEnc, &phoneNonce, &emailEnc, &emailNonce, &addrEnc, &addrNonce,
		); err != nil {
			return nil, fmt.Errorf("storage: scan lead: %w", err)
		}
		if it.Status, err = model.ParseLeadStatus(status); err != nil {
			return nil, fmt.Errorf("storage: scan lead: %w", err)
		}
		it.CustomerPhone = db.codec.Open(phoneEnc, phoneNonce)
		it.CustomerEmail = db.codec.Open(emailEnc, emailNonce)
		it.CustomerAddr = db.codec.Open(addrEnc, addrNonce)
		items = append(items, it)
	}
	return items, rows.Err()
}

// LeadsByCustomer returns every lead attached to one customer.
func (db *DB) LeadsByCustomer(ctx context.Context, customerUUID uuid.UUID) ([]model.Lead, error) {
	customerID, err := db.customerIDByUUID(ctx, customerUUID)
	if err != nil {
		return nil, err
	}

	rows, err := db.pool.Query(ctx,
		`SELECT uuid, lead_type, inquiry_type, lead_status, handle_at
		 FROM customer_leads WHERE customer_id = $1`, customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: leads by customer: %w", err)
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		var (
			l      model.Lead
			status string
		)
		if err := rows.Scan(&l.UUID, &l.LeadType, &l.InquiryType, &status, &l.HandledAt); err != nil {
			return nil, fmt.Errorf("storage: scan lead: %w", err)
		}
		if l.Status, err = model.ParseLeadStatus(status); err != nil {
			return nil, fmt.Errorf("storage: scan lead: %w", err)
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// UpdateLeadStatus moves a lead through its handling states.
func (db *DB) UpdateLeadStatus(ctx context.Context, leadUUID uuid.UUID, status model.LeadStatus) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE customer_leads SET lead_status = $2, handle_at = now() WHERE uuid = $1`,
		leadUUID, string(status),
	)
	if err != nil {
		return fmt.Errorf("storage: update lead status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: lead %s: %w", leadUUID, ErrNotFound)
	}
	return nil
}

// DeleteLeads removes leads by public identifier.
func (db *DB) DeleteLeads(ctx context.Context, leadUUIDs []uuid.UUID) error {
	if len(leadUUIDs) == 0 {
		return nil
	}
	_, err := db.pool.Exec(ctx, `DELETE FROM customer_leads WHERE uuid = ANY($1)`, leadUUIDs)
	if err != nil {
		return fmt.Errorf("storage: delete leads: %w", err)
	}
	return nil
}
