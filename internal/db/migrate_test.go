package db

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestStatements(t *testing.T) {
	stmts := Statements()
	if len(stmts) != 6 {
		t.Fatalf("got %d statements, want 6", len(stmts))
	}
	for _, s := range stmts {
		if !strings.HasPrefix(s, "CREATE TABLE IF NOT EXISTS") {
			t.Errorf("unexpected statement %.40q", s)
		}
	}
	if !strings.Contains(schemaSQL, "UNIQUE KEY uniq_entries_identity (campaign_id, identity_key)") {
		t.Error("play_entries lost its identity unique key")
	}
}

// Keys are "email:" plus an address of up to 254 characters.
func TestEntryKeyColumnsFitLongestEmail(t *testing.T) {
	const longest = len("email:") + 254
	for _, col := range []string{"identity_key", "customer_key"} {
		m := regexp.MustCompile(col + `\s+VARCHAR\((\d+)\)`).FindStringSubmatch(schemaSQL)
		if m == nil {
			t.Fatalf("%s column not found", col)
		}
		width, _ := strconv.Atoi(m[1])
		if width < longest {
			t.Errorf("%s is VARCHAR(%d), need at least %d", col, width, longest)
		}
	}
}

func TestMigrate(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	for range Statements() {
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS")).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	if err := Migrate(context.Background(), conn); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
