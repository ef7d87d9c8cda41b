package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fieldbook-crm/fieldbook/internal/model"
)

// CreateRecommendation inserts a referral. A referral with the same name or
// phone blind index already on file is ErrAlreadyExists.
func (db *DB) CreateRecommendation(ctx context.Context, actorUUID uuid.UUID, r model.Recommendation) (uuid.UUID, error) {
	ownerID, err := db.userIDByUUID(ctx, actorUUID)
	if err != nil {
		return uuid.Nil, err
	}

	var exists bool
	err = db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM customer_recommendations
		 WHERE full_name = $1 OR phone_number_hash = $2)`,
		r.FullName, db.codec.Index(r.PhoneNumber),
	).Scan(&exists)
	if err != nil {
		return uuid.Nil, fmt.Errorf("storage: check recommendation exists: %w", err)
	}
	if exists {
		return uuid.Nil, fmt.Errorf("storage: recommendation %s: %w", r.FullName, ErrAlreadyExists)
	}

	phone, err := db.codec.SealIndexed(r.PhoneNumber)
	if err != nil {
		return uuid.Nil, fmt.Errorf("storage: seal recommendation phone: %w", err)
	}
	city, err := db.codec.Seal(r.City)
	if err != nil {
		return uuid.Nil, fmt.Errorf("storage: seal recommendation city: %w", err)
	}

	var recUUID uuid.UUID
	err = db.pool.QueryRow(ctx,
		`INSERT INTO customer_recommendations (full_name,
		                                       phone_number_enc, phone_number_nonce, phone_number_hash,
		                                       city_enc, city_nonce,
		                                       referral_name, user_id, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING uuid`,
		r.FullName,
		phone.Ciphertext, phone.Nonce, phone.Hash,
		city.Ciphertext, city.Nonce,
		r.ReferralName, ownerID, r.CreatedBy,
	).Scan(&recUUID)
	if err != nil {
		if isUniqueViolation(err) {
			return uuid.Nil, fmt.Errorf("storage: recommendation %s: %w", r.FullName, ErrAlreadyExists)
		}
		return uuid.Nil, fmt.Errorf("storage: insert recommendation: %w", err)
	}
	return recUUID, nil
}

// ListRecommendationsByOwner returns a user's referrals, decrypted.
func (db *DB) ListRecommendationsByOwner(ctx context.Context, ownerUUID uuid.UUID) ([]model.Recommendation, error) {
	ownerID, err := db.userIDByUUID(ctx, ownerUUID)
	if err != nil {
		return nil, err
	}

	rows, err := db.pool.Query(ctx,
		`SELECT uuid, full_name,
		        phone_number_enc, phone_number_nonce,
		        city_enc, city_nonce,
		        referral_name, created_by
		 FROM customer_recommendations WHERE user_id = $1`, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list recommendations: %w", err)
	}
	defer rows.Close()

	var recs []model.Recommendation
	for rows.Next() {
		var (
			r                    model.Recommendation
			phoneEnc, phoneNonce []byte
			cityEnc, cityNonce   []byte
		)
		if err := rows.Scan(&r.UUID, &r.FullName,
			&phoneEnc, &phoneNonce, &cityEnc, &cityNonce,
			&r.ReferralName, &r.CreatedBy,
		); err != nil {
			return nil, fmt.Errorf("storage: scan recommendation: %w", err)
		}
		r.PhoneNumber = db.codec.Open(phoneEnc, phoneNonce)
		r.City = db.codec.Open(cityEnc, cityNonce)
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// GetRecommendation returns one referral by public identifier, decrypted.
func (db *DB) GetRecommendation(ctx context.Context, recUUID uuid.UUID) (model.Recommendation, error) {
	var (
		r                    model.Recommendation
		phoneEnc, phoneNonce []byte
		cityEnc, cityNonce   []byte
	)
	err := db.pool.QueryRow(ctx,
		`SELECT uuid, full_name,
		        phone_number_enc, phone_number_nonce,
		        city_enc, city_nonce,
		        referral_name, created_by
		 FROM customer_recommendations WHERE uuid = $1`, recUUID,
	).Scan(&r.UUID, &r.FullName,
		&phoneEnc, &phoneNonce, &cityEnc, &cityNonce,
		&r.ReferralName, &r.CreatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Recommendation{}, fmt.Errorf("storage: recommendation %s: %w", recUUID, ErrNotFound)
		}
		return model.Recommendation{}, fmt.Errorf("storage: get recommendation: %w", err)
	}
	r.PhoneNumber = db.codec.Open(phoneEnc, phoneNonce)
	r.City = db.codec.Open(cityEnc, cityNonce)
	return r, nil
}

// UpdateRecommendation re-encrypts a referral. Empty fields keep their
// previous decrypted values.
func (db *DB) UpdateRecommendation(ctx context.Context, recUUID uuid.UUID, r model.Recommendation) error {
	existing, err := db.GetRecommendation(ctx, recUUID)
	if err != nil {
		return err
	}
	if r.FullName == "" {
		r.FullName = existing.FullName
	}
	if r.PhoneNumber == "" {
		r.PhoneNumber = existing.PhoneNumber
	}
	if r.City == "" {
		r.City = existing.City
	}
	if r.ReferralName == "" {
		r.ReferralName = existing.ReferralName
	}

	phone, err := db.codec.SealIndexed(r.PhoneNumber)
	if err != nil {
		return fmt.Errorf("storage: seal recommendation phone: %w", err)
	}
	city, err := db.codec.Seal(r.City)
	if err != nil {
		return fmt.Errorf("storage: seal recommendation city: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`UPDATE customer_recommendations
		 SET full_name = $2,
		     phone_number_enc = $3, phone_number_nonce = $4, phone_number_hash = $5,
		     city_enc = $6, city_nonce = $7,
		     referral_name = $8
		 WHERE uuid = $1`,
		recUUID, r.FullName,
		phone.Ciphertext, phone.Nonce, phone.Hash,
		city.Ciphertext, city.Nonce,
		r.ReferralName,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("storage: recommendation %s: %w", r.FullName, ErrAlreadyExists)
		}
		return fmt.Errorf("storage: update recommendation: %w", err)
	}
	return nil
}

// DeleteRecommendations removes referrals by public identifier.
func (db *DB) DeleteRecommendations(ctx context.Context, recUUIDs []uuid.UUID) error {
	if len(recUUIDs) == 0 {
		return nil
	}
	_, err := db.pool.Exec(ctx,
		`DELETE FROM customer_recommendations WHERE uuid = ANY($1)`, recUUIDs,
	)
	if err != nil {
		return fmt.Errorf("storage: delete recommendations: %w", err)
	}
	return nil
}
