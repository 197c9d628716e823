package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"sheriff-scraper/models"
	"sheriff-scraper/utils"
)

// ErrAddressNotFound is returned by UpdateDetail for an unknown address.
var ErrAddressNotFound = errors.New("postgres: address not found")

// PostgresStore persists canonical listings, one row per address.
type PostgresStore struct {
	db     *sql.DB
	logger *utils.Logger
}

// NewPostgresStore opens a connection, waits for the database to come up,
// and runs schema migrations.
func NewPostgresStore(dsn string, logger *utils.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	retry := &utils.RetryConfig{MaxAttempts: 10, BaseDelay: 2 * time.Second, Logger: logger}
	if err := retry.Do("postgres-ping", db.Ping); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	ps := &PostgresStore{db: db, logger: logger}
	if err := ps.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return ps, nil
}

// migrate creates the base table and brings older deployments up to the
// current column set. Safe to run any number of times.
func (ps *PostgresStore) migrate() error {
	// The natural key is the trimmed, case-folded address, so uniqueness is
	// enforced on that expression rather than the raw display string. The
	// DROP CONSTRAINT clears the column-level constraint an earlier schema
	// carried; like the rest of the migration it is a no-op after the first
	// run.
	_, err := ps.db.Exec(`
		CREATE TABLE IF NOT EXISTS listings (
			id            SERIAL PRIMARY KEY,
			address       TEXT        NOT NULL,
			source        VARCHAR(50) NOT NULL DEFAULT '',
			detail_link   TEXT        NOT NULL DEFAULT '',
			case_id       TEXT        NOT NULL DEFAULT '',
			docket_number TEXT        NOT NULL DEFAULT '',
			status_date   TEXT        NOT NULL DEFAULT '',
			plaintiff     TEXT        NOT NULL DEFAULT '',
			defendant     TEXT        NOT NULL DEFAULT '',
			price         BIGINT      NOT NULL DEFAULT 0,
			last_updated  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		ALTER TABLE listings DROP CONSTRAINT IF EXISTS listings_address_key;

		CREATE UNIQUE INDEX IF NOT EXISTS idx_listings_address_key
			ON listings ((UPPER(BTRIM(address))));

		CREATE INDEX IF NOT EXISTS idx_listings_source      ON listings(source);
		CREATE INDEX IF NOT EXISTS idx_listings_status_date ON listings(status_date);
	`)
	if err != nil {
		return err
	}

	// Columns added after the initial schema shipped. ensureColumn checks
	// before altering, so re-running the migration is a no-op.
	added := []struct{ name, ddl string }{
		{"external_search_url", "TEXT NOT NULL DEFAULT ''"},
		{"court_case", "TEXT NOT NULL DEFAULT ''"},
		{"sale_date", "TEXT NOT NULL DEFAULT ''"},
		{"description", "TEXT NOT NULL DEFAULT ''"},
		{"upset_amount", "TEXT NOT NULL DEFAULT ''"},
		{"attorney", "TEXT NOT NULL DEFAULT ''"},
	}
	for _, col := range added {
		if err := ps.ensureColumn(col.name, col.ddl); err != nil {
			return err
		}
	}
	return nil
}

func (ps *PostgresStore) ensureColumn(name, ddl string) error {
	var exists bool
	err := ps.db.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_name = 'listings' AND column_name = $1
		)
	`, name).Scan(&exists)
	if err != nil {
		return fmt.Errorf("inspect column %s: %w", name, err)
	}
	if exists {
		return nil
	}

	ps.logger.Info("[postgres] adding column %s", name)
	_, err = ps.db.Exec(fmt.Sprintf("ALTER TABLE listings ADD COLUMN %s %s", name, ddl))
	if err != nil {
		return fmt.Errorf("add column %s: %w", name, err)
	}
	return nil
}

var listingColumns = []string{
	"address", "source", "detail_link", "case_id", "docket_number",
	"status_date", "plaintiff", "defendant", "price", "external_search_url",
	"court_case", "sale_date", "description", "upset_amount", "attorney",
}

// UpsertAll writes merged listings inside one transaction. Conflicts are
// detected on the normalized address expression, so a re-rendered casing of
// a known address updates its row instead of creating a second one. The
// merge step has already done the field-level union, so the database applies
// a plain full upsert; there is deliberately no insert-or-ignore path.
func (ps *PostgresStore) UpsertAll(listings []*models.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	tx, err := ps.db.Begin()
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	sets := make([]string, 0, len(listingColumns))
	for _, col := range listingColumns[1:] {
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}
	query := fmt.Sprintf(`
		INSERT INTO listings (%s)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT ((UPPER(BTRIM(address)))) DO UPDATE SET %s, last_updated = NOW()
	`, strings.Join(listingColumns, ", "), strings.Join(sets, ", "))

	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("postgres: prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, l := range listings {
		if _, err := stmt.Exec(
			l.Address, l.Source, l.DetailLink, l.CaseID, l.DocketNumber,
			l.StatusDate, l.Plaintiff, l.Defendant, l.Price, l.ExternalSearchURL,
			l.CourtCase, l.SaleDate, l.Description, l.UpsetAmount, l.Attorney,
		); err != nil {
			return fmt.Errorf("postgres: upsert %q: %w", l.Address, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}

	ps.logger.Info("[postgres] upserted %d listings", len(listings))
	return nil
}

// FetchAll retrieves the full canonical set.
func (ps *PostgresStore) FetchAll() ([]*models.Listing, error) {
	rows, err := ps.db.Query(fmt.Sprintf(`
		SELECT %s, last_updated FROM listings ORDER BY address
	`, strings.Join(listingColumns, ", ")))
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		l := &models.Listing{}
		if err := rows.Scan(
			&l.Address, &l.Source, &l.DetailLink, &l.CaseID, &l.DocketNumber,
			&l.StatusDate, &l.Plaintiff, &l.Defendant, &l.Price, &l.ExternalSearchURL,
			&l.CourtCase, &l.SaleDate, &l.Description, &l.UpsetAmount, &l.Attorney,
			&l.LastUpdated,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// UpdateDetail applies the manually sourced detail fields to one listing.
// Only non-empty values are written; an empty field in the update leaves the
// stored value alone.
func (ps *PostgresStore) UpdateDetail(address string, details models.DetailUpdate) error {
	res, err := ps.db.Exec(`
		UPDATE listings SET
			court_case   = COALESCE(NULLIF($2, ''), court_case),
			sale_date    = COALESCE(NULLIF($3, ''), sale_date),
			description  = COALESCE(NULLIF($4, ''), description),
			upset_amount = COALESCE(NULLIF($5, ''), upset_amount),
			attorney     = COALESCE(NULLIF($6, ''), attorney),
			last_updated = NOW()
		WHERE UPPER(BTRIM(address)) = UPPER(BTRIM($1))
	`, address, details.CourtCase, details.SaleDate, details.Description,
		details.UpsetAmount, details.Attorney)
	if err != nil {
		return fmt.Errorf("postgres: update detail %q: %w", address, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: update detail %q: %w", address, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrAddressNotFound, address)
	}
	return nil
}

// Close releases the connection pool.
func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}
