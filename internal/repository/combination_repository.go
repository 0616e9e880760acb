package repository

import (
	"context"
	"database/sql"

	"github.com/brlvenue/table-reservation/internal/model"
)

// CombinationRepo loads the table-combination configuration.
// Combinations are immutable at runtime: the full set is read once at
// startup and handed to the resolver as plain data, so adding a
// combination is a configuration change, not a code change.
type CombinationRepo struct {
	db *sql.DB
}

// NewCombinationRepo returns a new CombinationRepo bound to the given database.
func NewCombinationRepo(db *sql.DB) *CombinationRepo { return &CombinationRepo{db: db} }

// LoadAll reads every configured combination with its member tables
// in floor order.
func (r *CombinationRepo) LoadAll(ctx context.Context) ([]model.TableCombination, error) {
	const q = `SELECT id, name, capacity_min, capacity_max, fee_pence, setup_minutes
	           FROM table_combinations ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var combos []model.TableCombination
	for rows.Next() {
		var c model.TableCombination
		if err := rows.Scan(&c.ID, &c.Name, &c.CapacityMin, &c.CapacityMax, &c.FeePence, &c.SetupMinutes); err != nil {
			return nil, err
		}
		combos = append(combos, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range combos {
		tables, err := r.memberTables(ctx, combos[i].ID)
		if err != nil {
			return nil, err
		}
		combos[i].Tables = tables
	}
	return combos, nil
}

func (r *CombinationRepo) memberTables(ctx context.Context, comboID uint64) ([]model.Table, error) {
	const q = `SELECT t.id, t.label, t.capacity, t.premium, t.base_rate_pence, t.is_active, t.created_at
	           FROM combination_tables ct
	           JOIN venue_tables t ON t.id = ct.table_id
	           WHERE ct.combination_id = ?
	           ORDER BY ct.position`
	rows, err := r.db.QueryContext(ctx, q, comboID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tables []model.Table
	for rows.Next() {
		var t model.Table
		if err := rows.Scan(&t.ID, &t.Label, &t.Capacity, &t.Premium, &t.BaseRatePence, &t.IsActive, &t.CreatedAt); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}
