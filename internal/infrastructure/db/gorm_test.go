package db

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/mysql"
)

func TestOpenGormWithDialector_Success(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer sqlDB.Close()

	// Expect a Ping from our code
	mock.ExpectPing()

	// Build a mysql dialector that uses our mocked *sql.DB
	dial := mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true, // don't query @@version
	})

	gdb, err := OpenGormWithDialector(dial)
	if err != nil {
		t.Fatalf("OpenGormWithDialector error: %v", err)
	}
	if gdb == nil {
		t.Fatalf("got nil gorm.DB")
	}

	// Ensure all expectations were met
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOpenGormWithDialector_PingFails(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer sqlDB.Close()

	mock.ExpectPing().WillReturnError(errors.New("no ping"))

	dial := mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	})

	gdb, err := OpenGormWithDialector(dial)
	if err == nil {
		t.Fatalf("expected error, got nil (gdb=%v)", gdb)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOpenGormWithDialector_OpenFails(t *testing.T) {
	sqlDB, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer sqlDB.Close()

	// without SkipInitializeWithVersion the dialector queries @@version, which
	// the mock has no expectation for
	dial := mysql.New(mysql.Config{Conn: sqlDB})
	if _, err := OpenGormWithDialector(dial); err == nil {
		t.Fatal("expected error when version probe is not mocked")
	}
}

func TestModels_CoverEveryTable(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range Models() {
		tn, ok := m.(interface{ TableName() string })
		if !ok {
			t.Fatalf("%T has no TableName", m)
		}
		if seen[tn.TableName()] {
			t.Fatalf("duplicate table %s", tn.TableName())
		}
		seen[tn.TableName()] = true
	}
	for _, want := range []string{"accounts", "loans", "loan_participants", "invitations", "ach_details", "payments"} {
		if !seen[want] {
			t.Fatalf("missing table %s", want)
		}
	}
}
