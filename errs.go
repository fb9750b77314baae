package quell

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrInvalidTablename    = errors.New("tablename must be a non-empty string")
	ErrNoConnection        = errors.New("model does not have a database connection defined")
	ErrNoPrimaryKeys       = errors.New("table has no primary keys")
	ErrMultiplePrimaryKeys = errors.New("table has more than one primary key")
	ErrMissingPrimaryKey   = errors.New("required primary key value was absent")
	ErrUnknownColumn       = errors.New("column does not exist in the table schema")
	ErrEmptySearch         = errors.New("provided search data was empty")
	ErrNoUpdateKeys        = errors.New("no primary keys were available to update against")
	ErrNoDeleteData        = errors.New("no data was available to delete against")
	ErrEmptyWrite          = errors.New("no column data to write")
	ErrReplaceUnsupported  = errors.New("the database does not support REPLACE")
	ErrUnknownMethod       = errors.New("method is not defined on the model")
	ErrUnknownTable        = errors.New("table does not exist")
)

// FieldError ties a lookup failure to the field that caused it.
type FieldError struct {
	Op    string
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("could not %s record, %s: %s", e.Op, e.Err.Error(), e.Field)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func fieldError(op, field string, err error) error {
	return &FieldError{Op: op, Field: field, Err: err}
}

// opError prefixes a lookup failure that has no single field to blame.
func opError(op string, err error) error {
	return fmt.Errorf("could not %s record: %w", op, err)
}

// IsConfigError reports whether err comes from a misconfigured model rather
// than from data or the database.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidTablename) || errors.Is(err, ErrNoConnection)
}

// IsDuplicateKey reports whether err is a unique or primary key violation
// raised by MySQL, PostgreSQL or SQLite.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(liteErr.Error(), "UNIQUE constraint failed")
		}
	}

	return false
}
