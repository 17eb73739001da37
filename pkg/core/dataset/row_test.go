package dataset

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestRow_PreservesInsertionOrder(t *testing.T) {
	var r Row
	r.Set("zeta", 1)
	r.Set("alpha", 2)
	r.Set("mid", 3)
	r.Set("alpha", 20) // перезапись не меняет позицию

	want := []string{"zeta", "alpha", "mid"}
	if !reflect.DeepEqual(r.Keys(), want) {
		t.Fatalf("Keys = %v, want %v", r.Keys(), want)
	}

	v, ok := r.Get("alpha")
	if !ok || v != int64(20) {
		t.Errorf("Get(alpha) = %v, %v; want 20, true", v, ok)
	}

	if _, ok := r.Get("missing"); ok {
		t.Error("Get(missing) should report ok=false")
	}
}

func TestRow_Values(t *testing.T) {
	r := NewRow([]string{"id", "name"}, []Value{1, "x"})

	got := r.Values([]string{"name", "absent", "id"})
	want := []Value{"x", nil, int64(1)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Values = %#v, want %#v", got, want)
	}
}

func TestRow_JSONKeepsOrder(t *testing.T) {
	r := NewRow([]string{"name", "id", "note"}, []Value{"x", 7, nil})

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"name":"x","id":7,"note":null}` {
		t.Errorf("Unexpected JSON: %s", data)
	}

	var back Row
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !reflect.DeepEqual(back.Keys(), r.Keys()) {
		t.Errorf("Keys after round trip = %v, want %v", back.Keys(), r.Keys())
	}
	if v, _ := back.Get("id"); v != int64(7) {
		t.Errorf("id = %#v, want int64(7)", v)
	}
}

func TestNormalize(t *testing.T) {
	ts := time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, nil},
		{"int32", int32(5), int64(5)},
		{"uint8", uint8(200), int64(200)},
		{"float32", float32(1.5), float64(1.5)},
		{"text bytes", []byte("hello"), "hello"},
		{"json integer", json.Number("42"), int64(42)},
		{"json real", json.Number("4.25"), 4.25},
		{"time pointer", &ts, ts},
		{"nested map", map[string]int{"a": 1}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Normalize(%#v) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}

	blob := Normalize([]byte{0xff, 0x00})
	if KindOf(blob) != KindBlob {
		t.Errorf("Invalid UTF-8 bytes should stay blob, got %s", KindOf(blob))
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   Value
		want string
	}{
		{nil, ""},
		{int64(-3), "-3"},
		{2.5, "2.5"},
		{true, "true"},
		{time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "2024-01-02"},
		{time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "2024-01-02 03:04:05"},
		{[]byte{0xab, 0x01}, "0xAB01"},
	}

	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseTime(t *testing.T) {
	for _, s := range []string{"2024-05-06", "2024-05-06 07:08:09", "2024-05-06T07:08:09Z"} {
		if _, ok := ParseTime(s); !ok {
			t.Errorf("ParseTime(%q) failed", s)
		}
	}
	if _, ok := ParseTime("not a date"); ok {
		t.Error("ParseTime should reject garbage")
	}
}
