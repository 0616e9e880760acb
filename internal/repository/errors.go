// Package repository implements data access against MySQL.  It
// defines sentinel error values reused across repositories so that
// higher layers can distinguish failure scenarios without inspecting
// driver errors.  Write races lost to a unique index surface as the
// booking package's ErrConflict so the admission path can retry.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup matches no row.  Handlers
// should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// mysqlDuplicateEntry is the server error number MySQL raises when an
// insert or update violates a unique index.
const mysqlDuplicateEntry = 1062

// isDuplicate reports whether err is a unique-index violation.  The
// unique indexes on bookings.reference, check_in_codes.code and
// booking_tables(table_id, day, slot) are the authoritative owners of
// the corresponding uniqueness constraints; a duplicate here means a
// concurrent writer won the race.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
