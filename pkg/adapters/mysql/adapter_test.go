package mysql

import (
	"strings"
	"testing"
)

func TestNormalizeDSN(t *testing.T) {
	got, err := normalizeDSN("viewer:secret@tcp(db:3306)/shop")
	if err != nil {
		t.Fatalf("normalizeDSN: %v", err)
	}
	for _, want := range []string{"parseTime=true", "timeout=10s", "tcp(db:3306)/shop"} {
		if !strings.Contains(got, want) {
			t.Errorf("normalizeDSN() = %q, missing %q", got, want)
		}
	}

	if _, err := normalizeDSN("not a dsn"); err == nil {
		t.Error("expected error for malformed DSN")
	}
}
