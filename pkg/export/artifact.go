package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Content types.
const (
	ContentTypeCSV    = "text/csv; charset=utf-8"
	ContentTypeXLSX   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeZstd   = "application/zstd"
	ContentTypeBinary = "application/octet-stream"
)

// Artifact is one rendered export on its way to the sinks.
type Artifact struct {
	ID          string    `json:"id"`
	Dataset     string    `json:"dataset"`
	Format      string    `json:"format"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Body        []byte    `json:"-"`
	Size        int       `json:"size"`
	Rows        int       `json:"rows"`
	Columns     []string  `json:"columns"`
	Checksum    string    `json:"checksum,omitempty"`
	Compressed  bool      `json:"compressed"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewArtifact creates an artifact with a fresh ID and a file name derived from
// the dataset name and the creation time.
func NewArtifact(dataset, format string, body []byte) *Artifact {
	now := time.Now().UTC()
	return &Artifact{
		ID:          uuid.NewString(),
		Dataset:     dataset,
		Format:      format,
		FileName:    FileName(dataset, format, now),
		ContentType: ContentTypeFor(format),
		Body:        body,
		Size:        len(body),
		CreatedAt:   now,
	}
}

// ContentTypeFor maps an export format to its MIME type.
func ContentTypeFor(format string) string {
	switch format {
	case FormatCSV:
		return ContentTypeCSV
	case FormatXLSX:
		return ContentTypeXLSX
	default:
		return ContentTypeBinary
	}
}

// FileName builds "<dataset>_<yyyymmdd_hhmmss>.<format>" with unsafe characters
// replaced by '_'.
func FileName(dataset, format string, at time.Time) string {
	base := sanitize(dataset)
	if base == "" {
		base = "export"
	}
	return fmt.Sprintf("%s_%s.%s", base, at.Format("20060102_150405"), format)
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '_' || r == '-' || r == '.':
			return r
		default:
			return '_'
		}
	}, s)
}

// storedName is the object name used by persistent sinks; the ID prefix keeps
// two exports of the same dataset within one second apart.
func storedName(a *Artifact) string {
	id := a.ID
	if len(id) > 8 {
		id = id[:8]
	}
	if id == "" {
		return a.FileName
	}
	return id + "_" + a.FileName
}
