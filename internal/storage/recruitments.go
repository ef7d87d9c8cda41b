package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fieldbook-crm/fieldbook/internal/model"
)

// CreateRecruitment inserts a candidate. A candidate with the same name or a
// matching email/phone blind index is ErrAlreadyExists.
func (db *DB) CreateRecruitment(ctx context.Context, r model.Recruitment) (uuid.UUID, error) {
	if err := r.Validate(); err != nil {
		return uuid.Nil, err
	}

	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM recruitment
		 WHERE full_name = $1 OR email_hash = $2 OR phone_number_hash = $3)`,
		r.FullName, db.codec.Index(r.Email), db.codec.Index(r.PhoneNumber),
	).Scan(&exists)
	if err != nil {
		return uuid.Nil, fmt.Errorf("storage: check recruitment exists: %w", err)
	}
	if exists {
		return uuid.Nil, fmt.Errorf("storage: recruitment %s: %w", r.FullName, ErrAlreadyExists)
	}

	email, err := db.codec.SealIndexed(r.Email)
	if err != nil {
		return uuid.Nil, fmt.Errorf("storage: seal recruitment email: %w", err)
	}
	phone, err := db.codec.SealIndexed(r.PhoneNumber)
	if err != nil {
		return uuid.Nil, fmt.Errorf("storage: seal recruitment phone: %w", err)
	}

	var recUUID uuid.UUID
	err = db.pool.QueryRow(ctx,
		`INSERT INTO recruitment (full_name,
		                          email_enc, email_nonce, email_hash,
		                          phone_number_enc, phone_number_nonce, phone_number_hash,
		                          description, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING uuid`,
		r.FullName,
		email.Ciphertext, email.Nonce, email.Hash,
		phone.Ciphertext, phone.Nonce, phone.Hash,
		r.Description, r.CreatedBy,
	).Scan(&recUUID)
	if err != nil {
		if isUniqueViolation(err) {
			return uuid.Nil, fmt.Errorf("storage: recruitment %s: %w", r.FullName, ErrAlreadyExists)
		}
		return uuid.Nil, fmt.Errorf("storage: insert recruitment: %w", err)
	}
	return recUUID, nil
}

// ListRecruitments returns every candidate, decrypted.
func (db *DB) ListRecruitments(ctx context.Context) ([]model.Recruitment, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT uuid, full_name,
		        email_enc, email_nonce,
		        phone_number_enc, phone_number_nonce,
		        description, created_by
		 FROM recruitment`,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list recruitments: %w", err)
	}
	defer rows.Close()

	var recs []model.Recruitment
	for rows.Next() {
		var (
			r                    model.Recruitment
			emailEnc, emailNonce []byte
			phoneEnc, phoneNonce []byte
		)
		if err := rows.Scan(&r.UUID, &r.FullName,
			&emailEnc, &emailNonce, &phoneEnc, &phoneNonce,
			&r.Description, &r.CreatedBy,
		); err != nil {
			return nil, fmt.Errorf("storage: scan recruitment: %w", err)
		}
		r.Email = db.codec.Open(emailEnc, emailNonce)
		r.PhoneNumber = db.codec.Open(phoneEnc, phoneNonce)
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// GetRecruitment returns one candidate by public identifier, decrypted.
func (db *DB) GetRecruitment(ctx context.Context, recUUID uuid.UUID) (model.Recruitment, error) {
	var (
		r                    model.Recruitment
		emailEnc, emailNonce []byte
		phoneEnc, phoneNonce []byte
	)
	err := db.pool.QueryRow(ctx,
		`SELECT uuid, full_name,
		        email_enc, email_nonce,
		        phone_number_enc, phone_number_nonce,
		        description, created_by
		 FROM recruitment WHERE uuid = $1`, recUUID,
	).Scan(&r.UUID, &r.FullName,
		&emailEnc, &emailNonce, &phoneEnc, &phoneNonce,
		&r.Description, &r.CreatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Recruitment{}, fmt.Errorf("storage: recruitment %s: %w", recUUID, ErrNotFound)
		}
		return model.Recruitment{}, fmt.Errorf("storage: get recruitment: %w", err)
	}
	r.Email = db.codec.Open(emailEnc, emailNonce)
	r.PhoneNumber = db.codec.Open(phoneEnc, phoneNonce)
	return r, nil
}

// UpdateRecruitment re-encrypts a candidate. Empty fields keep their
// previous decrypted values.
func (db *DB) UpdateRecruitment(ctx context.Context, recUUID uuid.UUID, r model.Recruitment) error {
	existing, err := db.GetRecruitment(ctx, recUUID)
	if err != nil {
		return err
	}
	if r.FullName == "" {
		r.FullName = existing.FullName
	}
	if r.Email == "" {
		r.Email = existing.Email
	}
	if r.PhoneNumber == "" {
		r.PhoneNumber = existing.PhoneNumber
	}
	if r.Description == "" {
		r.Description = existing.Description
	}

	email, err := db.codec.SealIndexed(r.Email)
	if err != nil {
		return fmt.Errorf("storage: seal recruitment email: %w", err)
	}
	phone, err := db.codec.SealIndexed(r.PhoneNumber)
	if err != nil {
		return fmt.Errorf("storage: seal recruitment phone: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`UPDATE recruitment
		 SET full_name = $2,
		     email_enc = $3, email_nonce = $4, email_hash = $5,
		     phone_number_enc = $6, phone_number_nonce = $7, phone_number_hash = $8,
		     description = $9
		 WHERE uuid = $1`,
		recUUID, r.FullName,
		email.Ciphertext, email.Nonce, email.Hash,
		phone.Ciphertext, phone.Nonce, phone.Hash,
		r.Description,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("storage: recruitment %s: %w", r.FullName, ErrAlreadyExists)
		}
		return fmt.Errorf("storage: update recruitment: %w", err)
	}
	return nil
}

// DeleteRecruitment removes one candidate.
func (db *DB) DeleteRecruitment(ctx context.Context, recUUID uuid.UUID) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM recruitment WHERE uuid = $1`, recUUID)
	if err != nil {
		return fmt.Errorf("storage: delete recruitment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: recruitment %s: %w", recUUID, ErrNotFound)
	}
	return nil
}
