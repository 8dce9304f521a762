package grammar

import (
	"fmt"
	"strings"
)

// FieldError is a single validation failure tied to the settings field that
// caused it.
type FieldError struct {
	Field string
	Msg   string
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Msg
}

// ValidationResult collects every failure found during validation. Failures
// are accumulated rather than short-circuited so the caller can surface all
// of them at once; the run is blocked while any exist.
type ValidationResult struct {
	Errors []FieldError
}

// Add appends a failure for the given field.
func (r *ValidationResult) Add(field, format string, args ...any) {
	r.Errors = append(r.Errors, FieldError{Field: field, Msg: fmt.Sprintf(format, args...)})
}

// OK reports whether no failures were collected.
func (r *ValidationResult) OK() bool { return len(r.Errors) == 0 }

// Err returns the result as an error, or nil if validation passed.
func (r *ValidationResult) Err() error {
	if r.OK() {
		return nil
	}
	return r
}

func (r *ValidationResult) Error() string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d validation error(s): %s", len(r.Errors), strings.Join(msgs, "; "))
}

// Parse validates a group-order string and an orientation string together
// and returns the parsed pair. Checks run in order: token permutation,
// positional constraints, orientation length/symbols/sheet entry. All
// failures are collected into the returned result; the returned order and
// vector are only meaningful when res.OK().
func Parse(orderStr, orientStr string) (GroupOrder, OrientationVector, *ValidationResult) {
	res := &ValidationResult{}
	order := parseOrder(orderStr, res)
	vector := parseOrientation(orientStr, order, res.OK(), res)
	return order, vector, res
}

func parseOrder(s string, res *ValidationResult) GroupOrder {
	const field = "group_order"

	var order GroupOrder
	tokens := splitTokens(s)
	if len(tokens) != NumAxes {
		res.Add(field, "need exactly %d comma-separated axis tokens, got %d", NumAxes, len(tokens))
	}

	var seen [NumAxes]int
	pos := make(map[Axis]int, NumAxes)
	for i, tok := range tokens {
		a, ok := ParseAxis(tok)
		if !ok {
			res.Add(field, "%q is not a recognised axis", tok)
			continue
		}
		seen[a]++
		if i < NumAxes {
			order[i] = a
		}
		if _, dup := pos[a]; !dup {
			pos[a] = i
		}
	}
	for a := Axis(0); a < NumAxes; a++ {
		switch {
		case seen[a] == 0:
			res.Add(field, "%q must appear once", a)
		case seen[a] > 1:
			res.Add(field, "%q must only appear once", a)
		}
	}
	if !res.OK() {
		return order
	}

	// Positional constraints from the axis table.
	for a := Axis(0); a < NumAxes; a++ {
		info := axisTable[a]
		if info.first && pos[a] != 0 {
			res.Add(field, "%q must be the first axis", a)
		}
		if info.after != axisNone && pos[a] < pos[info.after] {
			res.Add(field, "%q must come after %q", a, info.after)
		}
	}
	return order
}

func parseOrientation(s string, order GroupOrder, orderOK bool, res *ValidationResult) OrientationVector {
	const field = "orientation"

	var vector OrientationVector
	tokens := splitTokens(s)
	if len(tokens) != NumAxes {
		res.Add(field, "need exactly %d comma-separated entries, got %d", NumAxes, len(tokens))
		return vector
	}
	for i, tok := range tokens {
		switch tok {
		case "-":
			vector[i] = OrientNone
		case "h":
			vector[i] = OrientHorizontal
		case "v":
			vector[i] = OrientVertical
		default:
			res.Add(field, "%q is not a recognised entry, want one of -, h, v", tok)
			continue
		}
		switch {
		case i == 0 && vector[i] != OrientNone:
			res.Add(field, "the first entry must be '-' (sheets are never merged)")
		case i > 0 && vector[i] == OrientNone:
			// Only name the axis when the order itself parsed; a zero-value
			// order would mislabel the entry.
			if orderOK {
				res.Add(field, "entry %d (%q) must be 'h' or 'v'", i+1, order[i])
			} else {
				res.Add(field, "entry %d must be 'h' or 'v'", i+1)
			}
		}
	}
	return vector
}

func splitTokens(s string) []string {
	parts := strings.Split(strings.ToLower(s), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
