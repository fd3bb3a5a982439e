package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type dialect struct {
	name       string
	driverName string
	// returning: INSERT ... RETURNING instead of LastInsertId
	returning bool
	// numberLock runs inside the numbering transaction before the MAX() read
	numberLock string
	// maxSuffix is appended to the MAX() read
	maxSuffix string
}

var dialects = map[string]dialect{
	DriverMySQL: {
		name:       DriverMySQL,
		driverName: "mysql",
		maxSuffix:  " FOR UPDATE",
	},
	DriverPostgres: {
		name:       DriverPostgres,
		driverName: "pgx",
		returning:  true,
		numberLock: "SELECT pg_advisory_xact_lock(1752112681)",
	},
	DriverSQLite: {
		name:       DriverSQLite,
		driverName: "sqlite3",
	},
}

func lookupDialect(driver string) (dialect, error) {
	d, ok := dialects[strings.ToLower(strings.TrimSpace(driver))]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported db driver %q (mysql, postgres, sqlite)", driver)
	}
	return d, nil
}

// rebind turns "?" placeholders into "$n" for postgres.
func (d dialect) rebind(query string) string {
	if d.name != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$")
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// normalizeDSN forces time parsing in UTC for mysql; the other drivers need no change.
func (d dialect) normalizeDSN(dsn string) (string, error) {
	if d.name != DriverMySQL {
		return dsn, nil
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

func (d dialect) configurePool(db *sql.DB) {
	switch d.name {
	case DriverSQLite:
		// satu writer saja, hindari SQLITE_BUSY
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	default:
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(5 * time.Minute)
	}
}

func isUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
