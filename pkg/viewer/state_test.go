package viewer

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/ruslano69/tdtp-viewer/pkg/core/dataset"
)

func TestState_MarshalJSON(t *testing.T) {
	rows := []dataset.Row{dataset.NewRow([]string{"name", "id"}, []dataset.Value{"x", 1})}
	st := State{Status: StatusLoaded, Dataset: "widgets", Generation: 3, Rows: rows, Schema: dataset.Infer(rows)}

	data, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got := string(data)
	for _, want := range []string{`"status":"loaded"`, `"rows":[{"name":"x","id":1}]`, `"row_count":1`, `"field":"name"`} {
		if !strings.Contains(got, want) {
			t.Errorf("JSON %s missing %s", got, want)
		}
	}

	data, _ = json.Marshal(State{Status: StatusEmpty, Dataset: "t"})
	if !strings.Contains(string(data), `"schema":[]`) || !strings.Contains(string(data), `"rows":[]`) {
		t.Errorf("Empty state JSON = %s", data)
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"csv":         FormatCSV,
		"CSV":         FormatCSV,
		"xlsx":        FormatSpreadsheet,
		"excel":       FormatSpreadsheet,
		"spreadsheet": FormatSpreadsheet,
	}
	for in, want := range tests {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Error("Expected error for pdf")
	}
}

func TestStatus_Terminal(t *testing.T) {
	for s, want := range map[Status]bool{
		StatusIdle: false, StatusLoading: false, StatusLoaded: true, StatusEmpty: true, StatusFailed: true,
	} {
		if s.Terminal() != want {
			t.Errorf("%s.Terminal() = %v", s, !want)
		}
	}
}
