package repository

import (
	"fmt"
	"reflect"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func matches(doc bson.M, filter bson.M) bool {
	for field, cond := range filter {
		value, present := doc[field]
		if op, ok := cond.(bson.M); ok {
			if !matchOperators(value, present, op) {
				return false
			}
			continue
		}
		if !equalsOrContains(value, present, cond) {
			return false
		}
	}
	return true
}

func matchOperators(value any, present bool, ops bson.M) bool {
	for op, arg := range ops {
		switch op {
		case "$in":
			found := false
			for _, candidate := range toSlice(arg) {
				if equalsOrContains(value, present, candidate) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case "$ne":
			if equalsOrContains(value, present, arg) {
				return false
			}
		case "$exists":
			want, _ := arg.(bool)
			if present != want {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// equalsOrContains mirrors Mongo equality: a nil condition matches a missing
// field, and a scalar condition matches any element of an array field.
func equalsOrContains(value any, present bool, cond any) bool {
	if cond == nil {
		return !present || value == nil
	}
	if !present {
		return false
	}
	if arr, ok := value.(primitive.A); ok {
		for _, el := range arr {
			if looseEqual(el, cond) {
				return true
			}
		}
		return false
	}
	return looseEqual(value, cond)
}

func looseEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return reflect.DeepEqual(a, b)
}

func toSlice(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	case primitive.A:
		return s
	case []string:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out
	}
	return []any{v}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func applyUpdate(doc bson.M, update bson.M) error {
	for op, arg := range update {
		fields, ok := arg.(bson.M)
		if !ok {
			return fmt.Errorf("update operator %s needs a document", op)
		}
		switch op {
		case "$set":
			for k, v := range fields {
				normalized, err := normalize(v)
				if err != nil {
					return err
				}
				doc[k] = normalized
			}
		case "$inc":
			for k, v := range fields {
				by, ok := toFloat(v)
				if !ok {
					return fmt.Errorf("$inc %s: non-numeric increment", k)
				}
				cur, _ := toFloat(doc[k])
				doc[k] = int64(cur + by)
			}
		default:
			return fmt.Errorf("unsupported update operator %s", op)
		}
	}
	return nil
}

// normalize round-trips a value through BSON so stored values have the same
// shape as freshly inserted rows (times, slices, nested structs).
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	wrapped, err := toDocument(bson.M{"v": v})
	if err != nil {
		return nil, err
	}
	return wrapped["v"], nil
}
