package processors

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// MaskPattern - способ маскирования значения колонки
type MaskPattern string

const (
	// MaskPartial: первый и последний символ, для email - первый символ и домен
	// (john.doe@example.com → j***@example.com)
	MaskPartial MaskPattern = "partial"
	// MaskMiddle: цифры в середине заменяются на X, по 4 цифры с краев видны
	// (+1 (555) 123-4567 → +1 (555) XXX-4567)
	MaskMiddle MaskPattern = "middle"
	// MaskStars: все кроме разделителей (123-45-6789 → ***-**-****)
	MaskStars MaskPattern = "stars"
	// MaskFirst2Last2: видны 2 первых и 2 последних непробельных символа
	// (1234 567890 → 12** ****90)
	MaskFirst2Last2 MaskPattern = "first2_last2"
)

var (
	emailPattern = regexp.MustCompile(`^([^@\s]+)@([a-zA-Z0-9.-]+\.[a-zA-Z]{2,})$`)

	maskFuncs = map[MaskPattern]func(string) string{
		MaskPartial:     maskPartial,
		MaskMiddle:      maskMiddle,
		MaskStars:       maskStars,
		MaskFirst2Last2: maskFirst2Last2,
	}
)

// FieldMasker маскирует колонки выгрузки. Имена колонок сравниваются без
// учета регистра. Пустые ячейки (NULL) не маскируются.
type FieldMasker struct {
	fields map[string]MaskPattern // lower(field) -> pattern
}

// NewFieldMasker создает маскировщик для field -> pattern
func NewFieldMasker(fields map[string]MaskPattern) *FieldMasker {
	m := &FieldMasker{fields: make(map[string]MaskPattern, len(fields))}
	for field, pattern := range fields {
		m.fields[strings.ToLower(field)] = pattern
	}
	return m
}

// NewFieldMaskerFromConfig разбирает конфигурацию field -> имя паттерна
func NewFieldMaskerFromConfig(fields map[string]string) (*FieldMasker, error) {
	parsed := make(map[string]MaskPattern, len(fields))
	for field, name := range fields {
		pattern, err := ParseMaskPattern(name)
		if err != nil {
			return nil, fmt.Errorf("field '%s': %w", field, err)
		}
		parsed[field] = pattern
	}
	return NewFieldMasker(parsed), nil
}

// ParseMaskPattern проверяет имя паттерна из конфигурации
func ParseMaskPattern(s string) (MaskPattern, error) {
	pattern := MaskPattern(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := maskFuncs[pattern]; !ok {
		return "", fmt.Errorf("invalid mask pattern '%s'", s)
	}
	return pattern, nil
}

// Name реализует RowProcessor
func (m *FieldMasker) Name() string { return "field_masker" }

// Process возвращает копию rows с замаскированными колонками; rows не меняется
func (m *FieldMasker) Process(_ context.Context, fields []string, rows [][]string) ([][]string, error) {
	masks := make(map[int]func(string) string)
	for i, field := range fields {
		if pattern, ok := m.fields[strings.ToLower(field)]; ok {
			masks[i] = maskFuncs[pattern]
		}
	}
	if len(masks) == 0 {
		return rows, nil
	}

	out := make([][]string, len(rows))
	for i, row := range rows {
		masked := append([]string(nil), row...)
		for col, mask := range masks {
			if col < len(masked) && masked[col] != "" {
				masked[col] = mask(masked[col])
			}
		}
		out[i] = masked
	}
	return out, nil
}

func maskPartial(v string) string {
	if m := emailPattern.FindStringSubmatch(v); m != nil {
		local := []rune(m[1])
		return string(local[0]) + "***@" + m[2]
	}
	r := []rune(v)
	if len(r) <= 2 {
		return "***"
	}
	return string(r[0]) + "***" + string(r[len(r)-1])
}

func maskMiddle(v string) string {
	digits := 0
	for _, r := range v {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if digits <= 4 {
		return strings.Repeat("X", len([]rune(v)))
	}

	keep := 4
	if digits < 8 {
		keep = digits / 2
	}

	var b strings.Builder
	seen := 0
	for _, r := range v {
		if unicode.IsDigit(r) {
			seen++
			if seen > keep && seen <= digits-keep {
				r = 'X'
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

func maskStars(v string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(" -().,/", r) {
			return r
		}
		return '*'
	}, v)
}

func maskFirst2Last2(v string) string {
	visible := 0
	for _, r := range v {
		if r != ' ' {
			visible++
		}
	}
	if visible <= 4 {
		return strings.Repeat("*", len([]rune(v)))
	}

	var b strings.Builder
	n := 0
	for _, r := range v {
		if r == ' ' {
			b.WriteRune(r)
			continue
		}
		n++
		if n > 2 && n <= visible-2 {
			r = '*'
		}
		b.WriteRune(r)
	}
	return b.String()
}
