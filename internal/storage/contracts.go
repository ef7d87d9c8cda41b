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

// CreateContract resolves the customer (find-or-create by blind index) and
// inserts the contract in one transaction. A duplicate contract number is
// ErrAlreadyExists. Returns the new contract's public identifier.
func (db *DB) CreateContract(ctx context.Context, actorUUID uuid.UUID, customer model.Customer, contract model.Contract) (uuid.UUID, error) {
	ownerID, err := db.userIDByUUID(ctx, actorUUID)
	if err != nil {
		return uuid.Nil, err
	}

	var contractUUID uuid.UUID
	for attempt := 0; attempt < 2; attempt++ {
		err = WithRetry(ctx, 2, 20*time.Millisecond, func() error {
			var txErr error
			contractUUID, txErr = db.createContractInTx(ctx, ownerID, customer, contract)
			return txErr
		})
		if err == nil || !isUniqueViolation(err) {
			return contractUUID, err
		}
		// The customer dedup raced with a concurrent insert; the retry's
		// lookup finds the committed row. A contract number collision is
		// terminal, not retriable.
		var exists bool
		if lookupErr := db.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM customer_contracts WHERE contract_number = $1)`,
			contract.ContractNumber,
		).Scan(&exists); lookupErr == nil && exists {
			return uuid.Nil, fmt.Errorf("storage: contract %s: %w", contract.ContractNumber, ErrAlreadyExists)
		}
	}
	return uuid.Nil, fmt.Errorf("storage: create contract: %w", err)
}

func (db *DB) createContractInTx(ctx context.Context, ownerID int64, customer model.Customer, contract model.Contract) (uuid.UUID, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("storage: begin create contract tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	customerID, _, err := db.resolveCustomerTx(ctx, tx, ownerID, customer)
	if err != nil {
		return uuid.Nil, err
	}

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM customer_contracts WHERE contract_number = $1)`,
		contract.ContractNumber,
	).Scan(&exists)
	if err != nil {
		return uuid.Nil, fmt.Errorf("storage: check contract exists: %w", err)
	}
	if exists {
		return uuid.Nil, fmt.Errorf("storage: contract %s: %w", contract.ContractNumber, ErrAlreadyExists)
	}

	var contractUUID uuid.UUID
	err = tx.QueryRow(ctx,
		`INSERT INTO customer_contracts (contract_number, contract_type, annual_fee,
		                                 payment_frequency, payment_method,
		                                 customer_id, user_id, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING uuid`,
		contract.ContractNumber, string(contract.ContractType), contract.AnnualFee,
		string(contract.PaymentFrequency), string(contract.PaymentMethod),
		customerID, ownerID, contract.CreatedBy,
	).Scan(&contractUUID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("storage: insert contract: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("storage: commit create contract tx: %w", err)
	}
	return contractUUID, nil
}

// ListContractsByOwner returns a user's contracts joined with the decrypted
// contact fields of their customers, newest first.
func (db *DB) ListContractsByOwner(ctx context.Context, ownerUUID uuid.UUID) ([]model.ContractListItem, error) {
	ownerID, err := db.userIDByUUID(ctx, ownerUUID)
	if err != nil {
		return nil, err
	}

	rows, err := db.pool.Query(ctx,
		`SELECT cc.uuid, cc.contract_number, cc.contract_type, cc.annual_fee,
		        cc.first_payment, cc.payment_frequency, cc.payment_method,
		        cc.created_by, cc.handle_at,
		        c.full_name,
		        c.phone_number_enc, c.phone_number_nonce,
		        c.email_enc, c.email_nonce,
		        c.address_enc, c.address_nonce
		 FROM customers c
		 JOIN customer_contracts cc ON cc.customer_id = c.id
		 WHERE cc.user_id = $1
		 ORDER BY cc.handle_at DESC`, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list contracts: %w", err)
	}
	defer rows.Close()

	var items []model.ContractListItem
	for rows.Next() {
		var (
			it                   model.ContractListItem
			ctype, pfreq, pmeth  string
			phoneEnc, phoneNonce []byte
			emailEnc, emailNonce []byte
			addrEnc, addrNonce   []byte
		)
		if err := rows.Scan(&it.UUID, &it.ContractNumber, &ctype, &it.AnnualFee,
			&it.FirstPayment, &pfreq, &pmeth, &it.CreatedBy, &it.HandledAt,
			&it.CustomerName,
			&phoneEnc, &phoneNonce, &emailEnc, &emailNonce, &addrEnc, &addrNonce,
		); err != nil {
			return nil, fmt.Errorf("storage: scan contract: %w", err)
		}
		if it.ContractType, err = model.ParseContractType(ctype); err != nil {
			return nil, fmt.Errorf("storage: scan contract: %w", err)
		}
		if it.PaymentFrequency, err = model.ParsePaymentFrequency(pfreq); err != nil {
			return nil, fmt.Errorf("storage: scan contract: %w", err)
		}
		if it.PaymentMethod, err = model.ParsePaymentMethod(pmeth); err != nil {
			return nil, fmt.Errorf("storage: scan contract: %w", err)
		}
		it.CustomerPhone = db.codec.Open(phoneEnc, phoneNonce)
		it.CustomerEmail = db.codec.Open(emailEnc, emailNonce)
		it.CustomerAddr = db.codec.Open(addrEnc, addrNonce)
		items = append(items, it)
	}
	return items, rows.Err()
}

// ContractsByCustomer returns every contract attached to one customer.
func (db *DB) ContractsByCustomer(ctx context.Context, customerUUID uuid.UUID) ([]model.Contract, error) {
	customerID, err := db.customerIDByUUID(ctx, customerUUID)
	if err != nil {
		return nil, err
	}

	rows, err := db.pool.Query(ctx,
		`SELECT uuid, contract_number, contract_type, annual_fee, first_payment,
		        payment_frequency, payment_method, created_by, handle_at
		 FROM customer_contracts WHERE customer_id = $1`, customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: contracts by customer: %w", err)
	}
	defer rows.Close()

	var contracts []model.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

// GetContract returns one contract by public identifier.
func (db *DB) GetContract(ctx context.Context, contractUUID uuid.UUID) (model.Contract, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT uuid, contract_number, contract_type, annual_fee, first_payment,
		        payment_frequency, payment_method, created_by, handle_at
		 FROM customer_contracts WHERE uuid = $1`, contractUUID,
	)
	c, err := scanContract(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Contract{}, fmt.Errorf("storage: contract %s: %w", contractUUID, ErrNotFound)
		}
		return model.Contract{}, err
	}
	return c, nil
}

// ContractCustomerUUID returns the public identifier of a contract's customer.
func (db *DB) ContractCustomerUUID(ctx context.Context, contractUUID uuid.UUID) (uuid.UUID, error) {
	var customerUUID uuid.UUID
	err := db.pool.QueryRow(ctx,
		`SELECT c.uuid
		 FROM customers c
		 JOIN customer_contracts cc ON c.id = cc.customer_id
		 WHERE cc.uuid = $1`, contractUUID,
	).Scan(&customerUUID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("storage: contract %s: %w", contractUUID, ErrNotFound)
		}
		return uuid.Nil, fmt.Errorf("storage: contract customer uuid: %w", err)
	}
	return customerUUID, nil
}

// UpdateContract replaces a contract's terms and stamps handle_at.
func (db *DB) UpdateContract(ctx context.Context, contractUUID uuid.UUID, c model.Contract) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE customer_contracts
		 SET contract_number = $2,
		     contract_type = $3,
		     annual_fee = $4,
		     payment_frequency = $5,
		     payment_method = $6,
		     handle_at = now()
		 WHERE uuid = $1`,
		contractUUID, c.ContractNumber, string(c.ContractType), c.AnnualFee,
		string(c.PaymentFrequency), string(c.PaymentMethod),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("storage: contract %s: %w", c.ContractNumber, ErrAlreadyExists)
		}
		return fmt.Errorf("storage: update contract: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: contract %s: %w", contractUUID, ErrNotFound)
	}
	return nil
}

// SetFirstPayment flips the first-payment flag on a contract.
func (db *DB) SetFirstPayment(ctx context.Context, contractUUID uuid.UUID, value bool) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE customer_contracts SET first_payment = $2 WHERE uuid = $1`,
		contractUUID, value,
	)
	if err != nil {
		return fmt.Errorf("storage: set first payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: contract %s: %w", contractUUID, ErrNotFound)
	}
	return nil
}

// DeleteContracts removes contracts by public identifier.
func (db *DB) DeleteContracts(ctx context.Context, contractUUIDs []uuid.UUID) error {
	if len(contractUUIDs) == 0 {
		return nil
	}
	_, err := db.pool.Exec(ctx,
		`DELETE FROM customer_contracts WHERE uuid = ANY($1)`, contractUUIDs,
	)
	if err != nil {
		return fmt.Errorf("storage: delete contracts: %w", err)
	}
	return nil
}

// ownerFilterID converts an optional owner scope to a nullable SQL argument.
// A nil ownerUUID means organization-wide aggregation.
func (db *DB) ownerFilterID(ctx context.Context, ownerUUID *uuid.UUID) (*int64, error) {
	if ownerUUID == nil {
		return nil, nil
	}
	id, err := db.userIDByUUID(ctx, *ownerUUID)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// ProductionValue sums annual fees, organization-wide or per owner.
func (db *DB) ProductionValue(ctx context.Context, ownerUUID *uuid.UUID) (int64, error) {
	ownerID, err := db.ownerFilterID(ctx, ownerUUID)
	if err != nil {
		return 0, err
	}
	var total int64
	err = db.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(annual_fee), 0)
		 FROM customer_contracts
		 WHERE $1::bigint IS NULL OR user_id = $1`, ownerID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("storage: production value: %w", err)
	}
	return total, nil
}

// ProductionCount counts contracts, organization-wide or per owner.
func (db *DB) ProductionCount(ctx context.Context, ownerUUID *uuid.UUID) (int64, error) {
	ownerID, err := db.ownerFilterID(ctx, ownerUUID)
	if err != nil {
		return 0, err
	}
	var count int64
	err = db.pool.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM customer_contracts
		 WHERE $1::bigint IS NULL OR user_id = $1`, ownerID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("storage: production count: %w", err)
	}
	return count, nil
}

// PortfolioChart counts contracts per product type.
func (db *DB) PortfolioChart(ctx context.Context, ownerUUID *uuid.UUID) (model.PortfolioChart, error) {
	ownerID, err := db.ownerFilterID(ctx, ownerUUID)
	if err != nil {
		return model.PortfolioChart{}, err
	}
	var p model.PortfolioChart
	err = db.pool.QueryRow(ctx,
		`SELECT
		    COUNT(*) FILTER (WHERE contract_type = 'BonusLifeProgram'),
		    COUNT(*) FILTER (WHERE contract_type = 'LifeProgram'),
		    COUNT(*) FILTER (WHERE contract_type = 'AllianzCareNow'),
		    COUNT(*) FILTER (WHERE contract_type = 'HealthProgram'),
		    COUNT(*) FILTER (WHERE contract_type = 'MyhomeHomeInsurance'),
		    COUNT(*) FILTER (WHERE contract_type = 'MfoHomeInsurance'),
		    COUNT(*) FILTER (WHERE contract_type = 'CorporatePropertyInsurance'),
		    COUNT(*) FILTER (WHERE contract_type = 'Kgfb'),
		    COUNT(*) FILTER (WHERE contract_type = 'Casco'),
		    COUNT(*) FILTER (WHERE contract_type = 'TravelInsurance'),
		    COUNT(*) FILTER (WHERE contract_type = 'CondominiumInsurance'),
		    COUNT(*) FILTER (WHERE contract_type = 'AgriculturalInsurance')
		 FROM customer_contracts
		 WHERE $1::bigint IS NULL OR user_id = $1`, ownerID,
	).Scan(&p.BonusLifeProgram, &p.LifeProgram, &p.AllianzCareNow, &p.HealthProgram,
		&p.MyhomeHomeInsurance, &p.MfoHomeInsurance, &p.CorporatePropertyInsurance,
		&p.Kgfb, &p.Casco, &p.TravelInsurance, &p.CondominiumInsurance, &p.AgriculturalInsurance)
	if err != nil {
		return model.PortfolioChart{}, fmt.Errorf("storage: portfolio chart: %w", err)
	}
	return p, nil
}

// WeeklyProductionChart counts contracts handled per weekday in a date range.
func (db *DB) WeeklyProductionChart(ctx context.Context, ownerUUID *uuid.UUID, from, to time.Time) (model.WeeklyProductionChart, error) {
	ownerID, err := db.ownerFilterID(ctx, ownerUUID)
	if err != nil {
		return model.WeeklyProductionChart{}, err
	}
	var w model.WeeklyProductionChart
	err = db.pool.QueryRow(ctx,
		`SELECT
		    COUNT(*) FILTER (WHERE EXTRACT(DOW FROM handle_at) = 1),
		    COUNT(*) FILTER (WHERE EXTRACT(DOW FROM handle_at) = 2),
		    COUNT(*) FILTER (WHERE EXTRACT(DOW FROM handle_at) = 3),
		    COUNT(*) FILTER (WHERE EXTRACT(DOW FROM handle_at) = 4),
		    COUNT(*) FILTER (WHERE EXTRACT(DOW FROM handle_at) = 5),
		    COUNT(*) FILTER (WHERE EXTRACT(DOW FROM handle_at) = 6),
		    COUNT(*) FILTER (WHERE EXTRACT(DOW FROM handle_at) = 0)
		 FROM customer_contracts
		 WHERE handle_at BETWEEN $2 AND $3 AND ($1::bigint IS NULL OR user_id = $1)`,
		ownerID, from, to,
	).Scan(&w.Monday, &w.Tuesday, &w.Wednesday, &w.Thursday, &w.Friday, &w.Saturday, &w.Sunday)
	if err != nil {
		return model.WeeklyProductionChart{}, fmt.Errorf("storage: weekly production chart: %w", err)
	}
	return w, nil
}

// MonthlyProductionChart aggregates contracts per month and week-of-month in
// a date range. byValue sums annual fees instead of counting contracts.
func (db *DB) MonthlyProductionChart(ctx context.Context, ownerUUID *uuid.UUID, from, to time.Time, byValue bool) ([]model.MonthlyProductionChart, error) {
	ownerID, err := db.ownerFilterID(ctx, ownerUUID)
	if err != nil {
		return nil, err
	}

	const weekOfMonth = `EXTRACT(WEEK FROM handle_at) - EXTRACT(WEEK FROM DATE_TRUNC('month', handle_at)) + 1`
	week := func(n string) string {
		if byValue {
			return `COALESCE(SUM(annual_fee) FILTER (WHERE ` + weekOfMonth + ` = ` + n + `), 0)`
		}
		return `COUNT(*) FILTER (WHERE ` + weekOfMonth + ` = ` + n + `)`
	}

	rows, err := db.pool.Query(ctx,
		`SELECT
		    CAST(EXTRACT(MONTH FROM handle_at) AS SMALLINT) AS month,
		    `+week("1")+`,
		    `+week("2")+`,
		    `+week("3")+`,
		    `+week("4")+`,
		    `+week("5")+`
		 FROM customer_contracts
		 WHERE handle_at BETWEEN $2 AND $3 AND ($1::bigint IS NULL OR user_id = $1)
		 GROUP BY month
		 ORDER BY month`,
		ownerID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: monthly production chart: %w", err)
	}
	defer rows.Close()

	var charts []model.MonthlyProductionChart
	for rows.Next() {
		var m model.MonthlyProductionChart
		if err := rows.Scan(&m.Month, &m.Week1, &m.Week2, &m.Week3, &m.Week4, &m.Week5); err != nil {
			return nil, fmt.Errorf("storage: scan monthly production chart: %w", err)
		}
		charts = append(charts, m)
	}
	return charts, rows.Err()
}

// rowScanner lets scanContract serve both QueryRow and Query results.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanContract(row rowScanner) (model.Contract, error) {
	var (
		c                   model.Contract
		ctype, pfreq, pmeth string
	)
	if err := row.Scan(&c.UUID, &c.ContractNumber, &ctype, &c.AnnualFee, &c.FirstPayment,
		&pfreq, &pmeth, &c.CreatedBy, &c.HandledAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Contract{}, err
		}
		return model.Contract{}, fmt.Errorf("storage: scan contract: %w", err)
	}
	var err error
	if c.ContractType, err = model.ParseContractType(ctype); err != nil {
		return model.Contract{}, fmt.Errorf("storage: scan contract: %w", err)
	}
	if c.PaymentFrequency, err = model.ParsePaymentFrequency(pfreq); err != nil {
		return model.Contract{}, fmt.Errorf("storage: scan contract: %w", err)
	}
	if c.PaymentMethod, err = model.ParsePaymentMethod(pmeth); err != nil {
		return model.Contract{}, fmt.Errorf("storage: scan contract: %w", err)
	}
	return c, nil
}
