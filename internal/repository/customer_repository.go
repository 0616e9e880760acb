package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/brlvenue/table-reservation/internal/model"
)

// CustomerRepo provides lookups against the customers table.  All
// lookup methods return (nil, nil) when no row matches, matching the
// contract of the identity matcher chain; errors are reserved for
// store failures.
type CustomerRepo struct {
	db *sql.DB
}

// NewCustomerRepo returns a new CustomerRepo bound to the given database.
func NewCustomerRepo(db *sql.DB) *CustomerRepo { return &CustomerRepo{db: db} }

const customerColumns = `id, name, email, phone, tier, created_at, updated_at`

func scanCustomer(row *sql.Row) (*model.Customer, error) {
	var c model.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Tier, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindByEmail looks up a customer by exact (lowercased) email.
func (r *CustomerRepo) FindByEmail(ctx context.Context, email string) (*model.Customer, error) {
	const q = `SELECT ` + customerColumns + ` FROM customers WHERE email = ?`
	return scanCustomer(r.db.QueryRowContext(ctx, q, strings.ToLower(email)))
}

// FindByPhone looks up a customer by exact normalised phone (digits only).
func (r *CustomerRepo) FindByPhone(ctx context.Context, phone string) (*model.Customer, error) {
	const q = `SELECT ` + customerColumns + ` FROM customers WHERE phone = ?`
	return scanCustomer(r.db.QueryRowContext(ctx, q, phone))
}

// FindByNameAndPhoneSuffix is the fuzzy fallback: folded-case name
// plus the trailing digits of the phone number.  It exists for guests
// who re-book with a different country-code formatting of the same
// number.
func (r *CustomerRepo) FindByNameAndPhoneSuffix(ctx context.Context, name, phoneSuffix string) (*model.Customer, error) {
	const q = `SELECT ` + customerColumns + ` FROM customers
	           WHERE LOWER(name) = ? AND phone LIKE CONCAT('%', ?)
	           ORDER BY updated_at DESC LIMIT 1`
	return scanCustomer(r.db.QueryRowContext(ctx, q, strings.ToLower(name), phoneSuffix))
}

// GetByID fetches a customer by primary key.  Unlike the lookup
// methods it treats a missing row as ErrNotFound, since callers pass
// IDs taken from existing bookings.
func (r *CustomerRepo) GetByID(ctx context.Context, id uint64) (*model.Customer, error) {
	const q = `SELECT ` + customerColumns + ` FROM customers WHERE id = ?`
	c, err := scanCustomer(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

// Create inserts a customer record, normalising the contact channels
// on the way in.  New customers start on the STANDARD tier.
func (r *CustomerRepo) Create(ctx context.Context, name, email, phone string) (*model.Customer, error) {
	const q = `INSERT INTO customers (name, email, phone, tier) VALUES (?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q, strings.TrimSpace(name), strings.ToLower(strings.TrimSpace(email)), digitsOnly(phone), model.TierStandard)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

// Touch bumps updated_at after booking activity so the fuzzy matcher
// prefers the most recently active record among namesakes.
func (r *CustomerRepo) Touch(ctx context.Context, id uint64, at time.Time) error {
	const q = `UPDATE customers SET updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, at.UTC(), id)
	return err
}

// RecordOverride appends a row to the override audit trail.  Every
// quota override must be attributable to an admin and a reason.
func (r *CustomerRepo) RecordOverride(ctx context.Context, customerID uint64, adminSubject, reason string, additionalTables, modifiedLimit int) error {
	const q = `INSERT INTO override_audit (customer_id, admin_subject, reason, additional_tables, modified_limit)
	           VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, customerID, adminSubject, reason, additionalTables, modifiedLimit)
	return err
}

// digitsOnly strips everything but digits so phone lookups compare on
// the stored canonical form.
func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
