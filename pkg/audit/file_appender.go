package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

const (
	defaultMaxSizeMB  = 100
	defaultMaxBackups = 5
)

// FileAppenderConfig - конфигурация file appender
type FileAppenderConfig struct {
	FilePath   string
	MaxSize    int64 // в мегабайтах, 0 = 100
	MaxBackups int   // 0 = 5
	Level      Level
	FormatJSON bool // иначе строка Entry.String()
}

// FileAppender пишет записи построчно в файл с ротацией по размеру
type FileAppender struct {
	mu    sync.Mutex
	out   *rotatingFile
	level Level
	json  bool
}

// NewFileAppender открывает (или создает) файл аудита в режиме дозаписи
func NewFileAppender(config FileAppenderConfig) (*FileAppender, error) {
	maxSize := config.MaxSize
	if maxSize <= 0 {
		maxSize = defaultMaxSizeMB
	}
	backups := config.MaxBackups
	if backups <= 0 {
		backups = defaultMaxBackups
	}

	out, err := openRotatingFile(config.FilePath, maxSize<<20, backups)
	if err != nil {
		return nil, err
	}
	return &FileAppender{out: out, level: config.Level, json: config.FormatJSON}, nil
}

func (fa *FileAppender) encode(entry *Entry) ([]byte, error) {
	filtered := entry.FilterByLevel(fa.level)
	if !fa.json {
		return []byte(filtered.String() + "\n"), nil
	}
	data, err := filtered.ToJSON()
	if err != nil {
		return nil, fmt.Errorf("encode audit entry %s: %w", entry.ID, err)
	}
	return append(data, '\n'), nil
}

// Append дописывает одну строку; запись никогда не делится между файлами
func (fa *FileAppender) Append(_ context.Context, entry *Entry) error {
	line, err := fa.encode(entry)
	if err != nil {
		return err
	}

	fa.mu.Lock()
	defer fa.mu.Unlock()
	if fa.out == nil {
		return fmt.Errorf("audit file appender closed")
	}
	return fa.out.writeLine(line)
}

// Flush - fsync текущего файла
func (fa *FileAppender) Flush() error {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	if fa.out == nil {
		return nil
	}
	return fa.out.f.Sync()
}

func (fa *FileAppender) Close() error {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	if fa.out == nil {
		return nil
	}
	err := fa.out.f.Close()
	fa.out = nil
	return err
}

// FilePath - путь к активному файлу
func (fa *FileAppender) FilePath() string {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	if fa.out == nil {
		return ""
	}
	return fa.out.path
}

// rotatingFile - файл с копиями path.1 (новейшая) .. path.N (старейшая)
type rotatingFile struct {
	path    string
	limit   int64
	backups int
	size    int64
	f       *os.File
}

func openRotatingFile(path string, limit int64, backups int) (*rotatingFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	r := &rotatingFile{path: path, limit: limit, backups: backups}
	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *rotatingFile) open() error {
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat audit file: %w", err)
	}
	r.f, r.size = f, info.Size()
	return nil
}

func (r *rotatingFile) writeLine(line []byte) error {
	// строка длиннее лимита все равно пишется, но в свежий файл
	if r.size > 0 && r.size+int64(len(line)) > r.limit {
		if err := r.rotate(); err != nil {
			return fmt.Errorf("rotate %s: %w", r.path, err)
		}
	}
	n, err := r.f.Write(line)
	r.size += int64(n)
	if err != nil {
		return fmt.Errorf("write %s: %w", r.path, err)
	}
	return nil
}

func (r *rotatingFile) backup(i int) string {
	return r.path + "." + strconv.Itoa(i)
}

func (r *rotatingFile) rotate() error {
	if err := r.f.Close(); err != nil {
		return err
	}
	if err := os.Remove(r.backup(r.backups)); err != nil && !os.IsNotExist(err) {
		return err
	}
	for i := r.backups - 1; i >= 1; i-- {
		if err := os.Rename(r.backup(i), r.backup(i+1)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	if err := os.Rename(r.path, r.backup(1)); err != nil {
		return err
	}
	return r.open()
}
