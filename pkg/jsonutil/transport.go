package jsonutil

import (
	"encoding/base64"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// ToTransport converts a database-scanned value into something that
// encoding/json can serialize without error and without surprises.
//
// The conversion is total (never returns an error) and idempotent: applying
// it to its own output yields the same value. Driver-specific types are
// flattened to JSON primitives:
//
//	time.Time      -> RFC 3339 string
//	time.Duration  -> seconds as float64
//	decimal types  -> float64
//	[]byte         -> base64 string
//	UUID           -> canonical string
//	NaN / +-Inf    -> nil
//
// Maps and slices are converted recursively. Anything unrecognized falls
// back to its fmt string representation rather than failing.
func ToTransport(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case bool, string, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return val
	case float64:
		return sanitizeFloat(val)
	case float32:
		return sanitizeFloat(float64(val))
	case time.Time:
		return val.Format(time.RFC3339)
	case time.Duration:
		return val.Seconds()
	case []byte:
		return base64.StdEncoding.EncodeToString(val)
	case [16]byte:
		return uuid.UUID(val).String()
	case uuid.UUID:
		return val.String()
	case decimal.Decimal:
		return sanitizeFloat(val.InexactFloat64())
	case pgtype.Numeric:
		if !val.Valid {
			return nil
		}
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return sanitizeFloat(f.Float64)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = ToTransport(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = ToTransport(item)
		}
		return out
	}

	return toTransportReflect(v)
}

// ToTransportRow converts every value in a result row in place order,
// returning a fresh slice.
func ToTransportRow(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = ToTransport(v)
	}
	return out
}

// sanitizeFloat maps NaN and infinities to nil since JSON has no
// representation for them.
func sanitizeFloat(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

// toTransportReflect handles container kinds not covered by the concrete
// type switch, then falls back to a string representation.
func toTransportReflect(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return ToTransport(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = ToTransport(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		for _, key := range rv.MapKeys() {
			out[fmt.Sprintf("%v", key.Interface())] = ToTransport(rv.MapIndex(key).Interface())
		}
		return out
	}

	return fmt.Sprintf("%v", v)
}
