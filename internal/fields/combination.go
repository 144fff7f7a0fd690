package fields

import "threatcomposer/pkg/models"

// Combination is a bitmask of filled fields. Bit p-1 is set iff the field at
// canonical position p is filled.
type Combination int

// Calculate classifies which fields of a statement are filled.
func Calculate(stmt *models.Statement) (Combination, []Field) {
	var c Combination
	filled := make([]Field, 0, len(canonical))
	for _, md := range canonical {
		if !Filled(stmt, md.Field) {
			continue
		}
		c |= bit(md.Position)
		filled = append(filled, md.Field)
	}
	return c, filled
}

// Has reports whether f is part of the combination.
func (c Combination) Has(f Field) bool {
	md, ok := byField[f]
	if !ok {
		return false
	}
	return c&bit(md.Position) != 0
}

// Fields returns the filled fields in canonical order.
func (c Combination) Fields() []Field {
	out := make([]Field, 0, len(canonical))
	for _, md := range canonical {
		if c&bit(md.Position) != 0 {
			out = append(out, md.Field)
		}
	}
	return out
}

// Valid reports whether c is within [0, 2^N-1].
func (c Combination) Valid() bool {
	return c >= 0 && c <= Full()
}

// Full is the combination with every field filled.
func Full() Combination {
	return Combination(1<<len(canonical) - 1)
}

func bit(position int) Combination {
	return Combination(1 << (position - 1))
}
