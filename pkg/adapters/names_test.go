package adapters

import (
	"errors"
	"testing"
)

func TestValidateName(t *testing.T) {
	valid := []string{"widgets", "dbo.Orders", "order_items", "Заказы", "x$y"}
	for _, name := range valid {
		if err := ValidateName(name); err != nil {
			t.Errorf("ValidateName(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{"", "   ", "a.b.c", ".table", "t;DROP TABLE x", `we"ird`, "a]b", "a`b", "line\nbreak", "sales 2024"}
	for _, name := range invalid {
		err := ValidateName(name)
		if !errors.Is(err, ErrInvalidName) {
			t.Errorf("ValidateName(%q) = %v, want ErrInvalidName", name, err)
		}
	}
}

func TestQuoting_SelectAll(t *testing.T) {
	tests := []struct {
		name   string
		q      Quoting
		table  string
		schema string
		want   string
	}{
		{"ansi", QuoteANSI, "widgets", "", `SELECT * FROM "widgets"`},
		{"ansi with schema", QuoteANSI, "widgets", "public", `SELECT * FROM "public"."widgets"`},
		{"mysql", QuoteMySQL, "widgets", "", "SELECT * FROM `widgets`"},
		{"mssql default schema", QuoteMSSQL, "Orders", "dbo", "SELECT * FROM [dbo].[Orders]"},
		{"mssql qualified", QuoteMSSQL, "sales.Orders", "dbo", "SELECT * FROM [sales].[Orders]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.q.SelectAll(tt.table, tt.schema)
			if err != nil {
				t.Fatalf("SelectAll: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestQuoting_RejectsInjection(t *testing.T) {
	if _, err := QuoteANSI.SelectAll(`x"; DROP TABLE y; --`, ""); !errors.Is(err, ErrInvalidName) {
		t.Errorf("Expected ErrInvalidName, got %v", err)
	}
}
