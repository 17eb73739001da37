package grid

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ruslano69/tdtp-viewer/pkg/core/dataset"
)

// ErrInvalidFilter - некорректный оператор или операнды фильтра
var ErrInvalidFilter = errors.New("invalid filter")

// Operator - оператор фильтра колонки
type Operator string

const (
	OpEquals             Operator = "equals"
	OpNotEqual           Operator = "notEqual"
	OpContains           Operator = "contains"
	OpNotContains        Operator = "notContains"
	OpStartsWith         Operator = "startsWith"
	OpEndsWith           Operator = "endsWith"
	OpLessThan           Operator = "lessThan"
	OpLessThanOrEqual    Operator = "lessThanOrEqual"
	OpGreaterThan        Operator = "greaterThan"
	OpGreaterThanOrEqual Operator = "greaterThanOrEqual"
	OpInRange            Operator = "inRange"
	OpBlank              Operator = "blank"
	OpNotBlank           Operator = "notBlank"
)

var operators = map[Operator]bool{
	OpEquals: true, OpNotEqual: true,
	OpContains: true, OpNotContains: true, OpStartsWith: true, OpEndsWith: true,
	OpLessThan: true, OpLessThanOrEqual: true, OpGreaterThan: true, OpGreaterThanOrEqual: true,
	OpInRange: true, OpBlank: true, OpNotBlank: true,
}

// Filter - условие на одну колонку. Фильтры разных колонок объединяются по AND.
//
// Value - операнд в текстовом виде, разбирается по классу значения ячейки
// (число, дата, bool). To - верхняя граница для inRange (включительно).
type Filter struct {
	Field string   `json:"field"`
	Op    Operator `json:"op"`
	Value string   `json:"value,omitempty"`
	To    string   `json:"to,omitempty"`
}

// Validate проверяет оператор и наличие операндов
func (f Filter) Validate() error {
	if f.Field == "" {
		return fmt.Errorf("%w: field is required", ErrInvalidFilter)
	}
	if !operators[f.Op] {
		return fmt.Errorf("%w: unknown operator %q", ErrInvalidFilter, f.Op)
	}
	if f.Op == OpInRange && (strings.TrimSpace(f.Value) == "" || strings.TrimSpace(f.To) == "") {
		return fmt.Errorf("%w: inRange needs value and to", ErrInvalidFilter)
	}
	return nil
}

// Match проверяет значение ячейки. NULL проходит blank, notEqual и
// notContains, остальные операторы для NULL ложны.
func (f Filter) Match(v dataset.Value) bool {
	switch f.Op {
	case OpBlank:
		return isBlank(v)
	case OpNotBlank:
		return !isBlank(v)
	case OpNotEqual:
		c, ok := compareWithText(v, f.Value)
		return !ok || c != 0
	case OpNotContains:
		return v == nil || !strings.Contains(lowerText(v), strings.ToLower(f.Value))
	}

	if v == nil {
		return false
	}

	switch f.Op {
	case OpContains:
		return strings.Contains(lowerText(v), strings.ToLower(f.Value))
	case OpStartsWith:
		return strings.HasPrefix(lowerText(v), strings.ToLower(f.Value))
	case OpEndsWith:
		return strings.HasSuffix(lowerText(v), strings.ToLower(f.Value))
	case OpInRange:
		lo, ok1 := compareWithText(v, f.Value)
		hi, ok2 := compareWithText(v, f.To)
		return ok1 && ok2 && lo >= 0 && hi <= 0
	}

	c, ok := compareWithText(v, f.Value)
	if !ok {
		return false
	}
	switch f.Op {
	case OpEquals:
		return c == 0
	case OpLessThan:
		return c < 0
	case OpLessThanOrEqual:
		return c <= 0
	case OpGreaterThan:
		return c > 0
	case OpGreaterThanOrEqual:
		return c >= 0
	default:
		return false
	}
}

func isBlank(v dataset.Value) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func lowerText(v dataset.Value) string {
	return strings.ToLower(dataset.FormatValue(v))
}

// matchAll - строка проходит все фильтры
func matchAll(r dataset.Row, filters []Filter) bool {
	for _, f := range filters {
		v, _ := r.Get(f.Field)
		if !f.Match(v) {
			return false
		}
	}
	return true
}
