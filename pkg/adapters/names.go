package adapters

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrInvalidName - имя набора данных не может быть безопасно подставлено в запрос
var ErrInvalidName = errors.New("invalid dataset name")

// maxNameLength - ограничение длины идентификатора (MS SQL допускает 128)
const maxNameLength = 128

// ValidateName проверяет имя набора данных.
// Допускаются буквы, цифры, '_', '$' и одна точка (schema.table).
// Кавычки, пробелы, точка с запятой и управляющие символы запрещены.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: %q exceeds %d characters", ErrInvalidName, name, maxNameLength)
	}
	if strings.Count(name, ".") > 1 {
		return fmt.Errorf("%w: %q has more than one qualifier", ErrInvalidName, name)
	}
	for _, part := range strings.Split(name, ".") {
		if part == "" {
			return fmt.Errorf("%w: %q has an empty part", ErrInvalidName, name)
		}
	}
	for _, r := range name {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
		case r == '_', r == '$', r == '.':
		default:
			return fmt.Errorf("%w: %q contains %q", ErrInvalidName, name, r)
		}
	}
	return nil
}

// Quoting - правила экранирования идентификаторов диалекта
type Quoting struct {
	Open  string
	Close string
}

var (
	// QuoteANSI - SQLite, PostgreSQL, ODBC
	QuoteANSI = Quoting{Open: `"`, Close: `"`}
	// QuoteMySQL - обратные кавычки
	QuoteMySQL = Quoting{Open: "`", Close: "`"}
	// QuoteMSSQL - квадратные скобки
	QuoteMSSQL = Quoting{Open: "[", Close: "]"}
)

// Quote проверяет имя и экранирует каждую его часть.
// Если имя без схемы и defaultSchema задана, она подставляется впереди.
func (q Quoting) Quote(name, defaultSchema string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}

	parts := strings.Split(name, ".")
	if len(parts) == 1 && defaultSchema != "" {
		if err := ValidateName(defaultSchema); err != nil {
			return "", fmt.Errorf("schema: %w", err)
		}
		parts = []string{defaultSchema, name}
	}

	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = q.Open + p + q.Close
	}
	return strings.Join(quoted, "."), nil
}

// SelectAll строит запрос полной выборки набора данных
func (q Quoting) SelectAll(name, defaultSchema string) (string, error) {
	ident, err := q.Quote(name, defaultSchema)
	if err != nil {
		return "", err
	}
	return "SELECT * FROM " + ident, nil
}
