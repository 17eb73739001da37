package processors

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/zeebo/xxh3"
)

// ErrChecksumMismatch - данные не совпадают с ожидаемым хешем
var ErrChecksumMismatch = errors.New("checksum mismatch")

// ComputeChecksum возвращает xxh3-64 данных как 16 hex-символов (big-endian).
func ComputeChecksum(data []byte) string {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], xxh3.Hash(data))
	return hex.EncodeToString(b[:])
}

// ValidateChecksum проверяет соответствие данных ожидаемому хешу.
func ValidateChecksum(data []byte, expectedHash string) error {
	if actual := ComputeChecksum(data); actual != expectedHash {
		return fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, expectedHash, actual)
	}
	return nil
}
