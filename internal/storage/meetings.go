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

// CreateMeeting inserts a calendar appointment. The contact phone is sealed
// with a blind index; name and location stay plaintext.
func (db *DB) CreateMeeting(ctx context.Context, actorUUID uuid.UUID, m model.Meeting) (uuid.UUID, error) {
	ownerID, err := db.userIDByUUID(ctx, actorUUID)
	if err != nil {
		return uuid.Nil, err
	}

	phone, err := db.codec.SealIndexed(m.PhoneNumber)
	if err != nil {
		return uuid.Nil, fmt.Errorf("storage: seal meeting phone: %w", err)
	}

	var meetingUUID uuid.UUID
	err = db.pool.QueryRow(ctx,
		`INSERT INTO user_meetings (meet_date, full_name,
		                            phone_number_enc, phone_number_nonce, phone_number_hash,
		                            meet_location, meet_type, created_by, user_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING uuid`,
		m.MeetDate, m.FullName,
		phone.Ciphertext, phone.Nonce, phone.Hash,
		m.Location, string(m.Type), m.CreatedBy, ownerID,
	).Scan(&meetingUUID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("storage: insert meeting: %w", err)
	}
	return meetingUUID, nil
}

// ListMeetingsByMonth returns a user's meetings falling in the given month
// (1..12), decrypted.
func (db *DB) ListMeetingsByMonth(ctx context.Context, ownerUUID uuid.UUID, month int) ([]model.Meeting, error) {
	ownerID, err := db.userIDByUUID(ctx, ownerUUID)
	if err != nil {
		return nil, err
	}

	rows, err := db.pool.Query(ctx,
		`SELECT uuid, meet_date, full_name,
		        phone_number_enc, phone_number_nonce,
		        meet_location, meet_type, is_completed, created_by, created_at
		 FROM user_meetings
		 WHERE user_id = $1 AND EXTRACT(MONTH FROM meet_date) = $2
		 ORDER BY meet_date`, ownerID, month,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list meetings: %w", err)
	}
	defer rows.Close()

	var meetings []model.Meeting
	for rows.Next() {
		var (
			m                    model.Meeting
			meetType             string
			phoneEnc, phoneNonce []byte
		)
		if err := rows.Scan(&m.UUID, &m.MeetDate, &m.FullName,
			&phoneEnc, &phoneNonce,
			&m.Location, &meetType, &m.IsCompleted, &m.CreatedBy, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("storage: scan meeting: %w", err)
		}
		if m.Type, err = model.ParseMeetingType(meetType); err != nil {
			return nil, fmt.Errorf("storage: scan meeting: %w", err)
		}
		m.PhoneNumber = db.codec.Open(phoneEnc, phoneNonce)
		meetings = append(meetings, m)
	}
	return meetings, rows.Err()
}

// GetMeeting returns one meeting by public identifier, decrypted.
func (db *DB) GetMeeting(ctx context.Context, meetingUUID uuid.UUID) (model.Meeting, error) {
	var (
		m                    model.Meeting
		meetType             string
		phoneEnc, phoneNonce []byte
	)
	err := db.pool.QueryRow(ctx,
		`SELECT uuid, meet_date, full_name,
		        phone_number_enc, phone_number_nonce,
		        meet_location, meet_type, is_completed, created_by, created_at
		 FROM user_meetings WHERE uuid = $1`, meetingUUID,
	).Scan(&m.UUID, &m.MeetDate, &m.FullName,
		&phoneEnc, &phoneNonce,
		&m.Location, &meetType, &m.IsCompleted, &m.CreatedBy, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Meeting{}, fmt.Errorf("storage: meeting %s: %w", meetingUUID, ErrNotFound)
		}
		return model.Meeting{}, fmt.Errorf("storage: get meeting: %w", err)
	}
	if m.Type, err = model.ParseMeetingType(meetType); err != nil {
		return model.Meeting{}, fmt.Errorf("storage: get meeting: %w", err)
	}
	m.PhoneNumber = db.codec.Open(phoneEnc, phoneNonce)
	return m, nil
}

// UpdateMeeting re-encrypts and replaces a meeting's fields. An empty phone
// keeps the stored one.
func (db *DB) UpdateMeeting(ctx context.Context, meetingUUID uuid.UUID, m model.Meeting) error {
	if m.PhoneNumber == "" {
		existing, err := db.GetMeeting(ctx, meetingUUID)
		if err != nil {
			return err
		}
		m.PhoneNumber = existing.PhoneNumber
	}

	phone, err := db.codec.SealIndexed(m.PhoneNumber)
	if err != nil {
		return fmt.Errorf("storage: seal meeting phone: %w", err)
	}

	tag, err := db.pool.Exec(ctx,
		`UPDATE user_meetings
		 SET meet_date = $2,
		     full_name = $3,
		     phone_number_enc = $4, phone_number_nonce = $5, phone_number_hash = $6,
		     meet_location = $7,
		     meet_type = $8
		 WHERE uuid = $1`,
		meetingUUID, m.MeetDate, m.FullName,
		phone.Ciphertext, phone.Nonce, phone.Hash,
		m.Location, string(m.Type),
	)
	if err != nil {
		return fmt.Errorf("storage: update meeting: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: meeting %s: %w", meetingUUID, ErrNotFound)
	}
	return nil
}

// SetMeetingCompleted flips the completion flag on a meeting.
func (db *DB) SetMeetingCompleted(ctx context.Context, meetingUUID uuid.UUID, completed bool) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE user_meetings SET is_completed = $2 WHERE uuid = $1`,
		meetingUUID, completed,
	)
	if err != nil {
		return fmt.Errorf("storage: set meeting completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: meeting %s: %w", meetingUUID, ErrNotFound)
	}
	return nil
}

// DeleteMeetings removes meetings by public identifier.
func (db *DB) DeleteMeetings(ctx context.Context, meetingUUIDs []uuid.UUID) error {
	if len(meetingUUIDs) == 0 {
		return nil
	}
	_, err := db.pool.Exec(ctx, `DELETE FROM user_meetings WHERE uuid = ANY($1)`, meetingUUIDs)
	if err != nil {
		return fmt.Errorf("storage: delete meetings: %w", err)
	}
	return nil
}

// MeetingCompletionChart counts completed vs pending meetings.
func (db *DB) MeetingCompletionChart(ctx context.Context, ownerUUID *uuid.UUID) (completed, pending int64, err error) {
	ownerID, err := db.ownerFilterID(ctx, ownerUUID)
	if err != nil {
		return 0, 0, err
	}
	err = db.pool.QueryRow(ctx,
		`SELECT
		    COUNT(*) FILTER (WHERE is_completed = TRUE),
		    COUNT(*) FILTER (WHERE is_completed = FALSE)
		 FROM user_meetings
		 WHERE $1::bigint IS NULL OR user_id = $1`, ownerID,
	).Scan(&completed, &pending)
	if err != nil {
		return 0, 0, fmt.Errorf("storage: meeting completion chart: %w", err)
	}
	return completed, pending, nil
}

// MeetingWeekdayChart counts meetings per weekday in a date range.
func (db *DB) MeetingWeekdayChart(ctx context.Context, ownerUUID *uuid.UUID, from, to time.Time) (model.MeetingWeekChart, error) {
	ownerID, err := db.ownerFilterID(ctx, ownerUUID)
	if err != nil {
		return model.MeetingWeekChart{}, err
	}
	var w model.MeetingWeekChart
	err = db.pool.QueryRow(ctx,
		`SELECT
		    COUNT(*) FILTER (WHERE EXTRACT(DOW FROM meet_date) = 1),
		    COUNT(*) FILTER (WHERE EXTRACT(DOW FROM meet_date) = 2),
		    COUNT(*) FILTER (WHERE EXTRACT(DOW FROM meet_date) = 3),
		    COUNT(*) FILTER (WHERE EXTRACT(DOW FROM meet_date) = 4),
		    COUNT(*) FILTER (WHERE EXTRACT(DOW FROM meet_date) = 5),
		    COUNT(*) FILTER (WHERE EXTRACT(DOW FROM meet_date) = 6),
		    COUNT(*) FILTER (WHERE EXTRACT(DOW FROM meet_date) = 0)
		 FROM user_meetings
		 WHERE meet_date BETWEEN $2 AND $3 AND ($1::bigint IS NULL OR user_id = $1)`,
		ownerID, from, to,
	).Scan(&w.Monday, &w.Tuesday, &w.Wednesday, &w.Thursday, &w.Friday, &w.Saturday, &w.Sunday)
	if err != nil {
		return model.MeetingWeekChart{}, fmt.Errorf("storage: meeting weekday chart: %w", err)
	}
	return w, nil
}

// MeetingMonthChart counts meetings per calendar month in a date range.
func (db *DB) MeetingMonthChart(ctx context.Context, ownerUUID *uuid.UUID, from, to time.Time) (model.MeetingMonthChart, error) {
	ownerID, err := db.ownerFilterID(ctx, ownerUUID)
	if err != nil {
		return model.MeetingMonthChart{}, err
	}
	var m model.MeetingMonthChart
	err = db.pool.QueryRow(ctx,
		`SELECT
		    COUNT(*) FILTER (WHERE EXTRACT(MONTH FROM meet_date) = 1),
		    COUNT(*) FILTER (WHERE EXTRACT(MONTH FROM meet_date) = 2),
		    COUNT(*) FILTER (WHERE EXTRACT(MONTH FROM meet_date) = 3),
		    COUNT(*) FILTER (WHERE EXTRACT(MONTH FROM meet_date) = 4),
		    COUNT(*) FILTER (WHERE EXTRACT(MONTH FROM meet_date) = 5),
		    COUNT(*) FILTER (WHERE EXTRACT(MONTH FROM meet_date) = 6),
		    COUNT(*) FILTER (WHERE EXTRACT(MONTH FROM meet_date) = 7),
		    COUNT(*) FILTER (WHERE EXTRACT(MONTH FROM meet_date) = 8),
		    COUNT(*) FILTER (WHERE EXTRACT(MONTH FROM meet_date) = 9),
		    COUNT(*) FILTER (WHERE EXTRACT(MONTH FROM meet_date) = 10),
		    COUNT(*) FILTER (WHERE EXTRACT(MONTH FROM meet_date) = 11),
		    COUNT(*) FILTER (WHERE EXTRACT(MONTH FROM meet_date) = 12)
		 FROM user_meetings
		 WHERE meet_date BETWEEN $2 AND $3 AND ($1::bigint IS NULL OR user_id = $1)`,
		ownerID, from, to,
	).Scan(&m.January, &m.February, &m.March, &m.April, &m.May, &m.June,
		&m.July, &m.August, &m.September, &m.October, &m.November, &m.December)
	if err != nil {
		return model.MeetingMonthChart{}, fmt.Errorf("storage: meeting month chart: %w", err)
	}
	return m, nil
}

// MeetingTypeChart counts meetings per category.
func (db *DB) MeetingTypeChart(ctx context.Context, ownerUUID *uuid.UUID) (map[model.MeetingType]int64, error) {
	ownerID, err := db.ownerFilterID(ctx, ownerUUID)
	if err != nil {
		return nil, err
	}
	rows, err := db.pool.Query(ctx,
		`SELECT meet_type, COUNT(*)
		 FROM user_meetings
		 WHERE $1::bigint IS NULL OR user_id = $1
		 GROUP BY meet_type`, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: meeting type chart: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.MeetingType]int64)
	for rows.Next() {
		var (
			meetType string
			count    int64
		)
		if err := rows.Scan(&meetType, &count); err != nil {
			return nil, fmt.Errorf("storage: scan meeting type chart: %w", err)
		}
		parsed, err := model.ParseMeetingType(meetType)
		if err != nil {
			return nil, fmt.Errorf("storage: meeting type chart: %w", err)
		}
		counts[parsed] = count
	}
	return counts, rows.Err()
}
