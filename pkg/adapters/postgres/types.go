package postgres

import (
	"fmt"
	"math"

	"github.com/jackc/pgx/v5/pgtype"
)

// pgValue приводит PostgreSQL-специфичные типы (UUID, NUMERIC, INTERVAL)
// к скалярам, понятным dataset.Normalize. JSON/ARRAY уходят в Normalize как есть.
func pgValue(val any) any {
	switch v := val.(type) {
	case [16]byte:
		return formatUUID(v)

	case pgtype.Numeric:
		if !v.Valid {
			return nil
		}
		// NaN и бесконечности не представимы в JSON - отдаем текстом
		if v.NaN {
			return "NaN"
		}
		if v.InfinityModifier != 0 {
			if v.InfinityModifier > 0 {
				return "Infinity"
			}
			return "-Infinity"
		}
		if v.Exp >= 0 && v.Int != nil && v.Int.IsInt64() {
			i := v.Int.Int64()
			for e := int32(0); e < v.Exp; e++ {
				if i > math.MaxInt64/10 || i < math.MinInt64/10 {
					return numericFloat(v)
				}
				i *= 10
			}
			return i
		}
		return numericFloat(v)

	case pgtype.Interval:
		if !v.Valid {
			return nil
		}
		return fmt.Sprintf("%d months %d days %dus", v.Months, v.Days, v.Microseconds)

	default:
		return val
	}
}

func numericFloat(v pgtype.Numeric) any {
	f64, err := v.Float64Value()
	if err == nil && f64.Valid {
		return f64.Float64
	}
	return v.Int.String()
}

// formatUUID форматирует UUID как xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx
func formatUUID(b [16]byte) string {
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}
