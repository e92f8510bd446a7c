package db

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
)

func TestEnsureSchemaCreatesOnlyMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	for _, tbl := range tableDDL {
		q := mock.ExpectQuery("information_schema\\.tables").WithArgs(tbl.name)
		if tbl.name == "trips" {
			q.WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("trips"))
			continue
		}
		q.WillReturnRows(sqlmock.NewRows([]string{"table_name"}))
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS " + tbl.name).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	for _, c := range addedColumns {
		mock.ExpectQuery("information_schema\\.columns").WithArgs(c.table, c.column).
			WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow(c.column))
	}

	if err := EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEnsureSchemaAddsMissingColumn(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	for _, tbl := range tableDDL {
		mock.ExpectQuery("information_schema\\.tables").WithArgs(tbl.name).
			WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow(tbl.name))
	}
	for i, c := range addedColumns {
		q := mock.ExpectQuery("information_schema\\.columns").WithArgs(c.table, c.column)
		if i == 0 {
			q.WillReturnRows(sqlmock.NewRows([]string{"column_name"}))
			mock.ExpectExec("ALTER TABLE passengers ADD COLUMN source_id").WillReturnResult(sqlmock.NewResult(0, 0))
			continue
		}
		q.WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow(c.column))
	}

	if err := EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIsDuplicateKey(t *testing.T) {
	if !IsDuplicateKey(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}) {
		t.Fatalf("1062 not detected")
	}
	if IsDuplicateKey(&mysql.MySQLError{Number: 1146}) || IsDuplicateKey(errors.New("x")) || IsDuplicateKey(nil) {
		t.Fatalf("false positive")
	}
}
