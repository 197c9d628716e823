package storage

import (
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"sheriff-scraper/models"
	"sheriff-scraper/utils"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PostgresStore{db: db, logger: utils.NewLogger()}, mock
}

var lateColumns = []string{
	"external_search_url", "court_case", "sale_date",
	"description", "upset_amount", "attorney",
}

func TestMigrateTwiceProducesIdenticalSchema(t *testing.T) {
	ps, mock := newMockStore(t)

	// First run: fresh database, every late-added column is missing and
	// gets its ALTER.
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS listings").
		WillReturnResult(sqlmock.NewResult(0, 0))
	for _, col := range lateColumns {
		mock.ExpectQuery("SELECT EXISTS").WithArgs(col).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec("ALTER TABLE listings ADD COLUMN " + col).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}

	// Second run: every column reports present, so no ALTER may be issued.
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS listings").
		WillReturnResult(sqlmock.NewResult(0, 0))
	for _, col := range lateColumns {
		mock.ExpectQuery("SELECT EXISTS").WithArgs(col).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	}

	if err := ps.migrate(); err != nil {
		t.Fatalf("first migrate: %v", err)
	}
	if err := ps.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("statement flow differed between runs: %v", err)
	}
}

func TestMigrateEnforcesNormalizedAddressUniqueness(t *testing.T) {
	ps, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("ON listings ((UPPER(BTRIM(address))))")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	for _, col := range lateColumns {
		mock.ExpectQuery("SELECT EXISTS").WithArgs(col).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	}

	if err := ps.migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unique index on the folded address was not created: %v", err)
	}
}

func TestUpsertConflictsOnNormalizedAddress(t *testing.T) {
	ps, mock := newMockStore(t)

	mock.ExpectBegin()
	// The conflict target must be the folded address expression, not the
	// raw column — a re-rendered casing of a known address has to update
	// the existing row.
	prep := mock.ExpectPrepare(regexp.QuoteMeta("ON CONFLICT ((UPPER(BTRIM(address)))) DO UPDATE"))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := ps.UpsertAll([]*models.Listing{
		{Address: "12 OAK ST", Source: "bergen", Price: 250000},
	})
	if err != nil {
		t.Fatalf("UpsertAll: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("upsert did not target the normalized key: %v", err)
	}
}

func TestUpdateDetailMatchesByNormalizedAddress(t *testing.T) {
	ps, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPPER(BTRIM(address)) = UPPER(BTRIM($1))")).
		WithArgs("12 Oak St", "C-123", "", "", "", "Stern & Co.").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := ps.UpdateDetail("12 Oak St", models.DetailUpdate{CourtCase: "C-123", Attorney: "Stern & Co."})
	if err != nil {
		t.Fatalf("UpdateDetail: %v", err)
	}
}

func TestUpdateDetailUnknownAddress(t *testing.T) {
	ps, mock := newMockStore(t)

	mock.ExpectExec("UPDATE listings SET").
		WithArgs("404 Nowhere Rd", "", "", "", "", "X").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := ps.UpdateDetail("404 Nowhere Rd", models.DetailUpdate{Attorney: "X"})
	if !errors.Is(err, ErrAddressNotFound) {
		t.Errorf("error = %v; want ErrAddressNotFound", err)
	}
}
