package viewer

import (
	"encoding/json"
	"fmt"

	"github.com/ruslano69/tdtp-viewer/pkg/core/dataset"
)

// Status is the tag of a viewer state.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusLoaded
	StatusEmpty
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether a fetch cycle ends in this status.
func (s Status) Terminal() bool {
	return s == StatusLoaded || s == StatusEmpty || s == StatusFailed
}

// State is a snapshot of the controller.
//
// Rows and Schema are set together and only in StatusLoaded, where both are
// non-empty. StatusEmpty carries an empty schema. Message is set only in
// StatusFailed and is never empty there.
type State struct {
	Status     Status
	Dataset    string
	Generation uint64
	Rows       []dataset.Row
	Schema     dataset.Schema
	Message    string
}

type stateJSON struct {
	Status     Status         `json:"status"`
	Dataset    string         `json:"dataset,omitempty"`
	Generation uint64         `json:"generation"`
	Schema     dataset.Schema `json:"schema"`
	Rows       []dataset.Row  `json:"rows"`
	RowCount   int            `json:"row_count"`
	Message    string         `json:"message,omitempty"`
}

// MarshalJSON renders rows as ordered JSON objects.
func (s State) MarshalJSON() ([]byte, error) {
	out := stateJSON{
		Status:     s.Status,
		Dataset:    s.Dataset,
		Generation: s.Generation,
		Schema:     s.Schema,
		Rows:       s.Rows,
		RowCount:   len(s.Rows),
		Message:    s.Message,
	}
	if out.Schema == nil {
		out.Schema = dataset.Schema{}
	}
	if out.Rows == nil {
		out.Rows = []dataset.Row{}
	}
	return json.Marshal(out)
}

func (s State) String() string {
	switch s.Status {
	case StatusLoaded:
		return fmt.Sprintf("%s(%s, %d rows, %d columns)", s.Status, s.Dataset, len(s.Rows), len(s.Schema))
	case StatusFailed:
		return fmt.Sprintf("%s(%s: %s)", s.Status, s.Dataset, s.Message)
	case StatusIdle:
		return s.Status.String()
	default:
		return fmt.Sprintf("%s(%s)", s.Status, s.Dataset)
	}
}
