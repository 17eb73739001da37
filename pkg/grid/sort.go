package grid

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ruslano69/tdtp-viewer/pkg/core/dataset"
)

// Direction - направление сортировки
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// SortKey - поле сортировки. Пустое направление означает Asc.
type SortKey struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

func (k SortKey) normalize() (SortKey, error) {
	switch Direction(strings.ToLower(string(k.Direction))) {
	case "", Asc:
		k.Direction = Asc
	case Desc:
		k.Direction = Desc
	default:
		return k, fmt.Errorf("invalid sort direction %q for %s", k.Direction, k.Field)
	}
	return k, nil
}

// sortRows сортирует строки на месте. Сортировка стабильная: строки с равными
// ключами сохраняют порядок источника.
func sortRows(rows []dataset.Row, keys []SortKey) {
	if len(keys) == 0 || len(rows) < 2 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return compareRows(rows[i], rows[j], keys) < 0
	})
}

// compareRows сравнивает строки по списку ключей; NULL первым при Asc
func compareRows(a, b dataset.Row, keys []SortKey) int {
	for _, k := range keys {
		av, _ := a.Get(k.Field)
		bv, _ := b.Get(k.Field)

		c := compareValues(av, bv)
		if k.Direction == Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}
