package internal

import (
	"math"
	"regexp"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/lychee-technology/formview"
)

// multipleOfTolerance bounds the distance of the quotient from an integer.
const multipleOfTolerance = 1e-9

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func numberValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// MaxLengthPredicate checks an inclusive upper bound on the rune count.
func MaxLengthPredicate(max int) Predicate {
	return func(v any) bool {
		return utf8.RuneCountInString(stringValue(v)) <= max
	}
}

// MinLengthPredicate checks an inclusive lower bound on the rune count.
func MinLengthPredicate(min int) Predicate {
	return func(v any) bool {
		return utf8.RuneCountInString(stringValue(v)) >= min
	}
}

// PatternPredicate reports whether the pattern matches anywhere in the value.
func PatternPredicate(re *regexp.Regexp) Predicate {
	return func(v any) bool {
		return re.MatchString(stringValue(v))
	}
}

// MinimumPredicate checks an inclusive numeric lower bound.
func MinimumPredicate(min float64) Predicate {
	return func(v any) bool {
		n, ok := numberValue(v)
		return ok && n >= min
	}
}

// MaximumPredicate checks an inclusive numeric upper bound.
func MaximumPredicate(max float64) Predicate {
	return func(v any) bool {
		n, ok := numberValue(v)
		return ok && n <= max
	}
}

// MultipleOfPredicate accepts values whose quotient by divisor is integral within
// a relative tolerance, so 0.3 is a multiple of 0.1.
func MultipleOfPredicate(divisor float64) Predicate {
	return func(v any) bool {
		n, ok := numberValue(v)
		if !ok {
			return false
		}
		return IsMultipleOf(n, divisor)
	}
}

// IsMultipleOf reports whether value is an integral multiple of divisor.
func IsMultipleOf(value, divisor float64) bool {
	if divisor == 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return false
	}
	q := value / divisor
	return math.Abs(q-math.Round(q)) < multipleOfTolerance*math.Max(1, math.Abs(q))
}

// IntegerPredicate accepts numbers equal to their floor.
func IntegerPredicate(v any) bool {
	n, ok := numberValue(v)
	return ok && math.Floor(n) == n
}

// RequiredNumber accepts any number.
func RequiredNumber(v any) bool {
	_, ok := numberValue(v)
	return ok
}

// RequiredString accepts non-empty strings.
func RequiredString(v any) bool {
	return stringValue(v) != ""
}

// RequiredIdentity accepts a non-empty reference identity.
func RequiredIdentity(v any) bool {
	return RequiredString(v)
}

// EnumPredicate accepts members of the enum set.
func EnumPredicate(values []any) Predicate {
	return func(v any) bool {
		for _, candidate := range values {
			if sameJSONValue(candidate, v) {
				return true
			}
		}
		return false
	}
}

func sameJSONValue(a, b any) bool {
	if an, ok := numberValue(a); ok {
		bn, ok := numberValue(b)
		return ok && an == bn
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	}
	ad, err1 := json.Marshal(a)
	bd, err2 := json.Marshal(b)
	return err1 == nil && err2 == nil && string(ad) == string(bd)
}

// compilePattern compiles the pattern keyword of a schema.
func compilePattern(schema *formview.Schema, at formview.Path) (*regexp.Regexp, error) {
	if schema.Pattern == nil {
		return nil, nil
	}
	re, err := regexp.Compile(*schema.Pattern)
	if err != nil {
		return nil, formview.NewInvalidPatternError(at.Pointer(), *schema.Pattern, err)
	}
	return re, nil
}
