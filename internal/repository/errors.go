// Package repository holds the MySQL data access layer for the
// append-only club collections: credited participation logs and archived
// meeting records. Sentinel values let handlers and services tell expected
// failures apart from backend errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrMeetingNotFound is returned when a meeting id does not exist.
// Handlers translate it into an HTTP 404 response.
var ErrMeetingNotFound = errors.New("meeting not found")

// ErrInvalidDate is returned when a session date is not YYYY-MM-DD.
var ErrInvalidDate = errors.New("invalid session date")

// mysqlDuplicateEntry is the server error number for a unique key clash.
const mysqlDuplicateEntry = 1062

func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
