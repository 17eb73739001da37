package grid

import (
	"testing"
	"time"

	"github.com/ruslano69/tdtp-viewer/pkg/core/dataset"
)

func TestCompareValues(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		a, b dataset.Value
		want int
	}{
		{"null equal", nil, nil, 0},
		{"null first", nil, int64(0), -1},
		{"null vs text", "a", nil, 1},
		{"ints", int64(2), int64(10), -1},
		{"int vs float", int64(2), 1.5, 1},
		{"float equal int", 2.0, int64(2), 0},
		{"text", "apple", "banana", -1},
		{"text case-sensitive", "B", "a", -1},
		{"bools", false, true, -1},
		{"times", day.Add(time.Hour), day, 1},
		{"blobs", []byte{1, 2}, []byte{1, 3}, -1},
		{"mixed kinds as text", int64(10), "9", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := compareValues(tt.a, tt.b); got != tt.want {
				t.Errorf("compareValues(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestFilterMatch(t *testing.T) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		f    Filter
		v    dataset.Value
		want bool
	}{
		{"equals text ignores case", Filter{Op: OpEquals, Value: "BoLt"}, "bolt", true},
		{"equals int", Filter{Op: OpEquals, Value: "42"}, int64(42), true},
		{"equals int with float text", Filter{Op: OpEquals, Value: "42.0"}, int64(42), true},
		{"equals unparsable", Filter{Op: OpEquals, Value: "x"}, int64(42), false},
		{"equals null", Filter{Op: OpEquals, Value: ""}, nil, false},
		{"notEqual", Filter{Op: OpNotEqual, Value: "a"}, "b", true},
		{"notEqual null", Filter{Op: OpNotEqual, Value: "a"}, nil, true},
		{"contains", Filter{Op: OpContains, Value: "OL"}, "bolt", true},
		{"contains number text", Filter{Op: OpContains, Value: "23"}, int64(1234), true},
		{"contains null", Filter{Op: OpContains, Value: "a"}, nil, false},
		{"notContains", Filter{Op: OpNotContains, Value: "x"}, "bolt", true},
		{"notContains null", Filter{Op: OpNotContains, Value: "x"}, nil, true},
		{"startsWith", Filter{Op: OpStartsWith, Value: "Bo"}, "bolt", true},
		{"endsWith", Filter{Op: OpEndsWith, Value: "LT"}, "bolt", true},
		{"endsWith miss", Filter{Op: OpEndsWith, Value: "bo"}, "bolt", false},
		{"lessThan numeric not lexical", Filter{Op: OpLessThan, Value: "10"}, int64(9), true},
		{"lessThanOrEqual", Filter{Op: OpLessThanOrEqual, Value: "9"}, 9.0, true},
		{"greaterThan float", Filter{Op: OpGreaterThan, Value: "2"}, 2.5, true},
		{"greaterThanOrEqual date", Filter{Op: OpGreaterThanOrEqual, Value: "2024-05-01"}, day, true},
		{"greaterThan date", Filter{Op: OpGreaterThan, Value: "2024-05-01"}, day, false},
		{"lessThan null", Filter{Op: OpLessThan, Value: "1"}, nil, false},
		{"inRange inclusive", Filter{Op: OpInRange, Value: "1", To: "5"}, int64(5), true},
		{"inRange outside", Filter{Op: OpInRange, Value: "1", To: "5"}, int64(6), false},
		{"inRange dates", Filter{Op: OpInRange, Value: "2024-01-01", To: "2024-12-31"}, day, true},
		{"blank null", Filter{Op: OpBlank}, nil, true},
		{"blank spaces", Filter{Op: OpBlank}, "  ", true},
		{"blank zero", Filter{Op: OpBlank}, int64(0), false},
		{"notBlank", Filter{Op: OpNotBlank}, "x", true},
		{"notBlank null", Filter{Op: OpNotBlank}, nil, false},
		{"bool equals", Filter{Op: OpEquals, Value: "true"}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.f.Match(tt.v); got != tt.want {
				t.Errorf("%s %q on %v = %v, want %v", tt.f.Op, tt.f.Value, tt.v, got, tt.want)
			}
		})
	}
}
