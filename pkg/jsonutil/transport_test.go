package jsonutil

import (
	"encoding/json"
	"math"
	"math/big"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

func TestToTransport_Primitives(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  any
	}{
		{"nil", nil, nil},
		{"string", "hello", "hello"},
		{"int", 42, 42},
		{"int64", int64(42), int64(42)},
		{"bool", true, true},
		{"float64", 3.14, 3.14},
		{"NaN becomes nil", math.NaN(), nil},
		{"positive infinity becomes nil", math.Inf(1), nil},
		{"negative infinity becomes nil", math.Inf(-1), nil},
		{"float32 NaN becomes nil", float32(math.NaN()), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToTransport(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ToTransport(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestToTransport_Time(t *testing.T) {
	ts := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	got := ToTransport(ts)
	if got != "2024-03-15T10:30:00Z" {
		t.Errorf("ToTransport(time) = %v, want 2024-03-15T10:30:00Z", got)
	}

	d := 90 * time.Second
	if got := ToTransport(d); got != 90.0 {
		t.Errorf("ToTransport(duration) = %v, want 90.0", got)
	}
}

func TestToTransport_Bytes(t *testing.T) {
	got := ToTransport([]byte("hello"))
	if got != "aGVsbG8=" {
		t.Errorf("ToTransport([]byte) = %v, want aGVsbG8=", got)
	}
}

func TestToTransport_UUID(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	if got := ToTransport(id); got != id.String() {
		t.Errorf("ToTransport(uuid.UUID) = %v, want %s", got, id.String())
	}

	var raw [16]byte = id
	if got := ToTransport(raw); got != id.String() {
		t.Errorf("ToTransport([16]byte) = %v, want %s", got, id.String())
	}
}

func TestToTransport_Decimal(t *testing.T) {
	dec := decimal.NewFromFloat(12.5)
	if got := ToTransport(dec); got != 12.5 {
		t.Errorf("ToTransport(decimal) = %v, want 12.5", got)
	}

	num := pgtype.Numeric{Int: big.NewInt(125), Exp: -1, Valid: true}
	if got := ToTransport(num); got != 12.5 {
		t.Errorf("ToTransport(pgtype.Numeric) = %v, want 12.5", got)
	}

	invalid := pgtype.Numeric{}
	if got := ToTransport(invalid); got != nil {
		t.Errorf("ToTransport(invalid numeric) = %v, want nil", got)
	}

	nan := pgtype.Numeric{NaN: true, Valid: true}
	if got := ToTransport(nan); got != nil {
		t.Errorf("ToTransport(NaN numeric) = %v, want nil", got)
	}
}

func TestToTransport_Containers(t *testing.T) {
	ts := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	input := map[string]any{
		"when":  ts,
		"blob":  []byte{0x01},
		"score": math.NaN(),
		"tags":  []any{"a", ts},
	}

	got, ok := ToTransport(input).(map[string]any)
	if !ok {
		t.Fatalf("expected map[string]any, got %T", ToTransport(input))
	}
	if got["when"] != "2024-03-15T10:30:00Z" {
		t.Errorf("when = %v", got["when"])
	}
	if got["blob"] != "AQ==" {
		t.Errorf("blob = %v", got["blob"])
	}
	if got["score"] != nil {
		t.Errorf("score = %v, want nil", got["score"])
	}
	tags, ok := got["tags"].([]any)
	if !ok || len(tags) != 2 || tags[1] != "2024-03-15T10:30:00Z" {
		t.Errorf("tags = %v", got["tags"])
	}
}

func TestToTransport_Idempotent(t *testing.T) {
	inputs := []any{
		time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
		[]byte("payload"),
		decimal.NewFromFloat(1.25),
		uuid.New(),
		math.NaN(),
		map[string]any{"nested": []any{time.Now(), math.Inf(1)}},
	}

	for _, in := range inputs {
		once := ToTransport(in)
		twice := ToTransport(once)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("not idempotent: first %v, second %v", once, twice)
		}
	}
}

func TestToTransport_OutputIsJSONEncodable(t *testing.T) {
	row := []any{
		time.Now(),
		[]byte{0xde, 0xad},
		math.Inf(1),
		pgtype.Numeric{Int: big.NewInt(1), Valid: true},
		nil,
		"plain",
	}

	converted := ToTransportRow(row)
	if _, err := json.Marshal(converted); err != nil {
		t.Fatalf("converted row failed to marshal: %v", err)
	}
}

func TestToTransport_UnknownTypeFallsBack(t *testing.T) {
	type custom struct{ A int }
	got := ToTransport(custom{A: 1})
	if _, ok := got.(string); !ok {
		t.Errorf("expected string fallback for unknown struct, got %T", got)
	}
}
