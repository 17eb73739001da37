package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileSink writes artifacts into a directory.
type FileSink struct {
	dir string
}

// NewFileSink creates dir if needed.
func NewFileSink(dir string) (*FileSink, error) {
	if dir == "" {
		return nil, fmt.Errorf("file sink: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file sink: create %s: %w", dir, err)
	}
	return &FileSink{dir: dir}, nil
}

// Name implements Sink.
func (s *FileSink) Name() string { return "file" }

// Path returns where a is (or will be) stored.
func (s *FileSink) Path(a *Artifact) string {
	return filepath.Join(s.dir, storedName(a))
}

// Put writes a to a temp file in the target directory and renames it into
// place, so readers never see a partial export.
func (s *FileSink) Put(ctx context.Context, a *Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".tdtpview-*")
	if err != nil {
		return fmt.Errorf("file sink: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(a.Body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("file sink: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file sink: close: %w", err)
	}
	if err := os.Rename(tmpName, s.Path(a)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file sink: rename: %w", err)
	}
	return nil
}
