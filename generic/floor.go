package generic

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MISS POLICY - What a floor lookup does when the target is below every key
// =============================================================================

type MissPolicy int

const (
	// RaiseOnMiss returns AdjustmentNotFoundError.
	RaiseOnMiss MissPolicy = iota

	// FallbackToNearest returns the smallest row.
	FallbackToNearest
)

func (p MissPolicy) String() string {
	switch p {
	case RaiseOnMiss:
		return "raise_on_miss"
	case FallbackToNearest:
		return "fallback_to_nearest"
	default:
		return fmt.Sprintf("miss_policy(%d)", int(p))
	}
}

// ParseMissPolicy parses the String form of a MissPolicy.
func ParseMissPolicy(s string) (MissPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "raise_on_miss":
		return RaiseOnMiss, nil
	case "fallback_to_nearest":
		return FallbackToNearest, nil
	}
	return 0, &InputError{Field: "miss_policy", Value: s, Reason: "must be raise_on_miss or fallback_to_nearest"}
}

// =============================================================================
// FLOOR TABLE - Rows keyed by a decimal, matched by largest key <= target
// =============================================================================

// FloorRow is a single keyed row.
type FloorRow[V any] struct {
	Key   decimal.Decimal
	Value V
}

// FloorTable answers "the row with the largest key <= target".
// It is immutable after construction and safe for concurrent reads.
type FloorTable[V any] struct {
	name   string
	policy MissPolicy
	keys   []decimal.Decimal
	values []V
}

// NewFloorTable sorts rows by key. Duplicate keys are a schema error.
func NewFloorTable[V any](name string, policy MissPolicy, rows []FloorRow[V]) (*FloorTable[V], error) {
	sorted := make([]FloorRow[V], len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Key.LessThan(sorted[j].Key)
	})

	t := &FloorTable[V]{
		name:   name,
		policy: policy,
		keys:   make([]decimal.Decimal, len(sorted)),
		values: make([]V, len(sorted)),
	}
	for i, r := range sorted {
		if i > 0 && r.Key.Equal(sorted[i-1].Key) {
			return nil, &SchemaError{Table: name, Detail: fmt.Sprintf("duplicate key %s", r.Key)}
		}
		t.keys[i] = r.Key
		t.values[i] = r.Value
	}
	return t, nil
}

// Lookup returns the matched row.
func (t *FloorTable[V]) Lookup(target decimal.Decimal) (FloorRow[V], error) {
	if len(t.keys) == 0 {
		return FloorRow[V]{}, &AdjustmentNotFoundError{
			Table:  t.name,
			Key:    target.String(),
			Reason: "table is empty",
		}
	}

	// First index whose key is strictly greater than target; the floor is one before.
	i := sort.Search(len(t.keys), func(i int) bool {
		return t.keys[i].GreaterThan(target)
	}) - 1

	if i < 0 {
		if t.policy != FallbackToNearest {
			return FloorRow[V]{}, &AdjustmentNotFoundError{
				Table:  t.name,
				Key:    target.String(),
				Reason: fmt.Sprintf("below smallest key %s", t.keys[0]),
			}
		}
		i = 0
	}
	return FloorRow[V]{Key: t.keys[i], Value: t.values[i]}, nil
}

func (t *FloorTable[V]) Name() string       { return t.name }
func (t *FloorTable[V]) Policy() MissPolicy { return t.policy }
func (t *FloorTable[V]) Len() int           { return len(t.keys) }

// Rows returns a copy of the rows in key order.
func (t *FloorTable[V]) Rows() []FloorRow[V] {
	out := make([]FloorRow[V], len(t.keys))
	for i := range t.keys {
		out[i] = FloorRow[V]{Key: t.keys[i], Value: t.values[i]}
	}
	return out
}
