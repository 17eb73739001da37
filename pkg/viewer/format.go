package viewer

import (
	"fmt"
	"strings"
)

// Format selects the export serialization.
type Format string

const (
	FormatCSV         Format = "csv"
	FormatSpreadsheet Format = "xlsx"
)

// ParseFormat accepts "csv", "xlsx", "excel" and "spreadsheet".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "xlsx", "excel", "spreadsheet":
		return FormatSpreadsheet, nil
	default:
		return "", fmt.Errorf("unknown export format %q (csv, xlsx)", s)
	}
}
