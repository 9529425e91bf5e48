package cache

import (
	"database/sql"
	"embed"
	"encoding/json"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // register the pgx driver with database/sql
	"github.com/pkg/errors"

	"github.com/tn-tools/leasepay/internal/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements Store over a block_summaries table, for
// operators who already run the payout job against a shared database
// instead of a local file.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool for the given DSN.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errors.WithMessage(err, "opening postgres cache")
	}
	if err := db.Ping(); err != nil {
		return nil, errors.WithMessage(err, "pinging postgres cache")
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an existing database handle.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Load reads every cached summary in ascending height order.
func (s *PostgresStore) Load() ([]models.BlockSummary, error) {
	rows, err := s.db.Query(`SELECT height, generator, fee_pool, previous_fee_pool, transactions FROM block_summaries ORDER BY height`)
	if err != nil {
		return nil, errors.WithMessage(err, "loading cached summaries")
	}
	defer rows.Close()

	var summaries []models.BlockSummary
	for rows.Next() {
		var summary models.BlockSummary
		var txs []byte
		if err := rows.Scan(&summary.Height, &summary.Generator, &summary.FeePool, &summary.PreviousFeePool, &txs); err != nil {
			return nil, errors.WithMessage(err, "scanning cached summary")
		}
		if err := json.Unmarshal(txs, &summary.Transactions); err != nil {
			return nil, errors.WithMessagef(err, "malformed cached transactions at height %d", summary.Height)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WithMessage(err, "iterating cached summaries")
	}
	return summaries, nil
}

// Append upserts one summary; replaying an already-cached height is a
// no-op, which keeps the contract identical to the file backend.
func (s *PostgresStore) Append(summary models.BlockSummary) error {
	txs, err := json.Marshal(summary.Transactions)
	if err != nil {
		return errors.WithMessagef(err, "marshaling transactions for height %d", summary.Height)
	}
	_, err = s.db.Exec(
		`INSERT INTO block_summaries (height, generator, fee_pool, previous_fee_pool, transactions) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (height) DO NOTHING`,
		summary.Height, summary.Generator, summary.FeePool, summary.PreviousFeePool, txs,
	)
	if err != nil {
		return errors.WithMessagef(err, "appending summary for height %d", summary.Height)
	}
	return nil
}

// Commit is a no-op: rows are durable as soon as Append returns.
func (s *PostgresStore) Commit() error {
	return nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Migrate brings the cache schema up to date using the embedded
// migration files.
func Migrate(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return errors.WithMessage(err, "opening postgres cache")
	}
	defer db.Close()

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return errors.WithMessage(err, "loading embedded migrations")
	}
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return errors.WithMessage(err, "preparing migration driver")
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return errors.WithMessage(err, "initializing migrations")
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.WithMessage(err, "applying migrations")
	}
	return nil
}
