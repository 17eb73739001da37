package processors

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// DefaultCompressionLevel - уровень zstd по умолчанию (баланс скорость/размер)
const DefaultCompressionLevel = 3

// Энкодеры кешируются по уровню, декодер один: EncodeAll/DecodeAll
// безопасны для конкурентного вызова.
var (
	encodersMu sync.Mutex
	encoders   = map[zstd.EncoderLevel]*zstd.Encoder{}

	decoderOnce sync.Once
	decoder     *zstd.Decoder
	decoderErr  error
)

func encoderFor(level int) (*zstd.Encoder, error) {
	if level <= 0 {
		level = DefaultCompressionLevel
	}
	zl := zstd.EncoderLevelFromZstd(level)

	encodersMu.Lock()
	defer encodersMu.Unlock()
	if enc, ok := encoders[zl]; ok {
		return enc, nil
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zl), zstd.WithEncoderConcurrency(4))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	encoders[zl] = enc
	return enc, nil
}

// Compress сжимает блок в один zstd-кадр.
// level: 1 (самый быстрый) - 22 (лучшее сжатие), <= 0 - DefaultCompressionLevel.
func Compress(input []byte, level int) ([]byte, error) {
	if len(input) == 0 {
		return nil, nil
	}
	enc, err := encoderFor(level)
	if err != nil {
		return nil, err
	}
	return enc.EncodeAll(input, nil), nil
}

// Decompress распаковывает zstd-блок.
func Decompress(input []byte) ([]byte, error) {
	if len(input) == 0 {
		return nil, nil
	}
	decoderOnce.Do(func() {
		decoder, decoderErr = zstd.NewReader(nil, zstd.WithDecoderConcurrency(4))
	})
	if decoderErr != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", decoderErr)
	}
	out, err := decoder.DecodeAll(input, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress zstd: %w", err)
	}
	return out, nil
}

// ShouldCompress определяет, стоит ли сжимать данные
// (маленькие блоки после сжатия часто не уменьшаются).
func ShouldCompress(dataSize int, minSize int) bool {
	return dataSize >= minSize
}
