package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/JulioAnalista/vendas-audit/internal/config"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"

	queryTimeout = 30 * time.Second
)

// DB representa la conexión a la base de datos
type DB struct {
	*sql.DB
	Driver string
}

// Connect abre la base configurada (PostgreSQL o SQLite para corridas locales)
func Connect(cfg *config.Config) (*DB, error) {
	if cfg.Database.Driver == DriverSQLite {
		return Open(DriverSQLite, cfg.GetSQLiteDSN())
	}
	return Open(DriverPostgres, cfg.GetDSN())
}

// Open abre y verifica una conexión con el driver indicado
func Open(driver, dsn string) (*DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if driver == DriverSQLite {
		// SQLite serializa escrituras; una sola conexión también mantiene viva la base :memory:
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(10 * time.Minute)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}

	return &DB{DB: db, Driver: driver}, nil
}

// Close cierra la conexión a la base de datos
func (db *DB) Close() error {
	return db.DB.Close()
}

// HealthCheck verifica la salud de la base de datos
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database query test failed: %w", err)
	}
	return nil
}

// GetStats retorna estadísticas del pool
func (db *DB) GetStats() map[string]interface{} {
	stats := db.Stats()
	return map[string]interface{}{
		"driver":               db.Driver,
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
		"wait_duration":        stats.WaitDuration,
	}
}

// ExecWithTimeout ejecuta una sentencia con timeout
func (db *DB) ExecWithTimeout(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return db.ExecContext(ctx, query, args...)
}

// QueryRowWithTimeout ejecuta una query de una fila y escanea en dest antes
// de liberar el contexto
func (db *DB) QueryRowWithTimeout(ctx context.Context, query string, args []interface{}, dest ...interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return db.QueryRowContext(ctx, query, args...).Scan(dest...)
}

// QueryWithTimeout ejecuta una query de lectura y llama a scan por cada fila
func (db *DB) QueryWithTimeout(ctx context.Context, query string, args []interface{}, scan func(*sql.Rows) error) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// WithTransaction ejecuta una función dentro de una transacción
func (db *DB) WithTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("error rolling back transaction: %w, original error: %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	return nil
}

// LogStats registra las estadísticas de la base de datos
func (db *DB) LogStats(logger *logrus.Logger) {
	logger.WithFields(logrus.Fields(db.GetStats())).Info("Database pool statistics")
}
