// Package filter evaluates query expressions against flat rows and
// assembles rows from sources with differing columns into one result.
package filter

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/autoindex/schema"
)

// Getter returns the value of a field in the current row.
type Getter func(field string) (string, bool)

// Validate checks that every operator and condition in e is understood.
func Validate(e schema.Expression) error {
	if e.IsEmpty() {
		return nil
	}
	if e.IsTerm() {
		if _, ok := schema.ValidConditions[e.Condition]; !ok {
			return fmt.Errorf("unsupported condition %q on field %s", e.Condition, e.Field)
		}
		if e.Condition == schema.CondBetween {
			if _, _, err := ParseRange(e.Value); err != nil {
				return err
			}
		}
		return nil
	}
	switch e.Op {
	case schema.OpAnd, schema.OpOr, schema.OpNot:
	default:
		return fmt.Errorf("unsupported operator %q", e.Op)
	}
	for _, c := range e.Children {
		if err := Validate(c); err != nil {
			return err
		}
	}
	return nil
}

// Match reports whether the row behind get satisfies e.
// Disabled nodes are skipped. A term on a missing field never matches.
func Match(e schema.Expression, get Getter) bool {
	if e.IsEmpty() || e.Disabled {
		return true
	}
	if e.IsTerm() {
		v, ok := get(e.Field)
		return ok && matchTerm(e.Condition, v, e.Value)
	}

	active := slices.DeleteFunc(slices.Clone(e.Children), func(c schema.Expression) bool { return c.Disabled })
	switch e.Op {
	case schema.OpOr:
		if len(active) == 0 {
			return true
		}
		for _, c := range active {
			if Match(c, get) {
				return true
			}
		}
		return false
	case schema.OpNot:
		return !matchAll(active, get)
	default:
		return matchAll(active, get)
	}
}

func matchAll(children []schema.Expression, get Getter) bool {
	for _, c := range children {
		if !Match(c, get) {
			return false
		}
	}
	return true
}

func matchTerm(cond schema.Condition, v, want string) bool {
	switch cond {
	case schema.CondEquals:
		return v == want
	case schema.CondContains:
		return strings.Contains(v, want)
	case schema.CondIn:
		for _, item := range strings.Split(want, ",") {
			if strings.TrimSpace(item) == v {
				return true
			}
		}
		return false
	case schema.CondBetween:
		from, to, err := ParseRange(want)
		if err != nil {
			return false
		}
		return inRange(v, from, to)
	case schema.CondGreaterThan:
		return compare(v, want) > 0
	case schema.CondGreaterThanOrEqualTo:
		return compare(v, want) >= 0
	case schema.CondLessThan:
		c := compare(v, want)
		return c < 0 && c != incomparable
	case schema.CondLessThanOrEqualTo:
		c := compare(v, want)
		return c <= 0 && c != incomparable
	default:
		return false
	}
}

const incomparable = -2

// compare orders numbers numerically and everything else lexically.
func compare(a, b string) int {
	x, okA := Number(a)
	y, okB := Number(b)
	switch {
	case okA && okB:
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case okA != okB:
		return incomparable
	}
	return strings.Compare(a, b)
}

// ParseRange parses a BETWEEN value "from,to" in epoch seconds.
// The range is half-open: from is included, to is not.
func ParseRange(s string) (int64, int64, error) {
	lo, hi, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("invalid range %q, expected from,to", s)
	}
	from, err := strconv.ParseInt(strings.TrimSpace(lo), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid range start %q: %w", lo, err)
	}
	to, err := strconv.ParseInt(strings.TrimSpace(hi), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid range end %q: %w", hi, err)
	}
	return from, to, nil
}

// inRange reports whether v lies in [from, to). Integer values compare
// exactly; fractional ones fall back to float64.
func inRange(v string, from, to int64) bool {
	if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
		return n >= from && n < to
	}
	f, ok := Number(v)
	return ok && f >= float64(from) && f < float64(to)
}

// Number reads a value as a number. RFC3339 timestamps become epoch seconds.
func Number(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return float64(t.Unix()), true
	}
	return 0, false
}
