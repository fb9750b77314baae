package quell

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Conn is the database handle records run their queries on. *sqlx.DB and
// *sqlx.Tx both satisfy it.
type Conn interface {
	QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	DriverName() string
}

// preparer is implemented by handles that support prepared statements.
type preparer interface {
	PreparexContext(ctx context.Context, query string) (*sqlx.Stmt, error)
}

// Dialect selects identifier quoting, placeholders and schema introspection.
type Dialect int

const (
	MySQL Dialect = iota
	SQLite
	Postgres
)

func (d Dialect) String() string {
	switch d {
	case MySQL:
		return "mysql"
	case SQLite:
		return "sqlite"
	case Postgres:
		return "postgres"
	default:
		return "unknown"
	}
}

// DialectOf guesses the dialect from the driver name of conn, defaulting to MySQL.
func DialectOf(conn Conn) Dialect {
	if conn == nil {
		return MySQL
	}
	return DialectFor(conn.DriverName())
}

func DialectFor(driverName string) Dialect {
	switch strings.ToLower(driverName) {
	case "sqlite", "sqlite3":
		return SQLite
	case "pgx", "postgres", "postgresql", "pq":
		return Postgres
	default:
		return MySQL
	}
}

type MySQLConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
	Params   map[string]string
}

func ConnectMySQL(config MySQLConfig) (*sqlx.DB, error) {
	cfg := mysql.NewConfig()
	cfg.User = config.User
	cfg.Passwd = config.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%s", config.Host, config.Port)
	cfg.DBName = config.Database
	cfg.Params = config.Params
	return sqlx.Open("mysql", cfg.FormatDSN())
}

type PGConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

func ConnectPostgresql(config PGConfig) (*sqlx.DB, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", config.User, config.Password, config.Host, config.Port, config.Database)
	return sqlx.Open("pgx", connStr)
}

// ConnectSqlite opens a SQLite database. In-memory databases are limited to a
// single connection so every query sees the same data.
func ConnectSqlite(path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if path == "" || strings.Contains(path, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	return db, nil
}
