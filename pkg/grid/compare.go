package grid

import (
	"bytes"
	"cmp"
	"strconv"
	"strings"
	"time"

	"github.com/ruslano69/tdtp-viewer/pkg/core/dataset"
)

// compareValues сравнивает два значения ячеек, возвращает -1, 0 или 1.
//
// NULL меньше любого значения. Числа сравниваются как числа (integer и real
// между собой тоже), даты как моменты времени, bool как false < true, blob
// побайтово. Значения разных классов сравниваются как строки.
func compareValues(a, b dataset.Value) int {
	ka, kb := dataset.KindOf(a), dataset.KindOf(b)

	switch {
	case ka == dataset.KindNull && kb == dataset.KindNull:
		return 0
	case ka == dataset.KindNull:
		return -1
	case kb == dataset.KindNull:
		return 1
	case ka.IsNumeric() && kb.IsNumeric():
		return compareNumbers(a, b)
	case ka != kb:
		return strings.Compare(dataset.FormatValue(a), dataset.FormatValue(b))
	}

	switch x := a.(type) {
	case bool:
		return compareBools(x, b.(bool))
	case time.Time:
		return x.Compare(b.(time.Time))
	case []byte:
		return bytes.Compare(x, b.([]byte))
	default:
		return strings.Compare(dataset.FormatValue(a), dataset.FormatValue(b))
	}
}

func compareNumbers(a, b dataset.Value) int {
	if ai, ok := a.(int64); ok {
		if bi, ok := b.(int64); ok {
			return cmp.Compare(ai, bi)
		}
	}
	fa, _ := dataset.ToFloat(a)
	fb, _ := dataset.ToFloat(b)
	return cmp.Compare(fa, fb)
}

func compareBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

// compareWithText сравнивает значение ячейки с текстом из фильтра, разобранным
// по классу значения. ok=false, если текст не приводится к этому классу.
// Текст сравнивается без учета регистра.
func compareWithText(v dataset.Value, s string) (int, bool) {
	s = strings.TrimSpace(s)

	switch x := v.(type) {
	case nil:
		return 0, false
	case int64:
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return cmp.Compare(x, i), true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return cmp.Compare(float64(x), f), true
	case float64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return cmp.Compare(x, f), true
	case time.Time:
		t, ok := dataset.ParseTime(s)
		if !ok {
			return 0, false
		}
		return x.Compare(t), true
	case bool:
		bv, err := strconv.ParseBool(s)
		if err != nil {
			return 0, false
		}
		return compareBools(x, bv), true
	default:
		return strings.Compare(strings.ToLower(dataset.FormatValue(v)), strings.ToLower(s)), true
	}
}
