package cube

import (
	"retail-analytics/internal/errors"
	"retail-analytics/internal/models"
)

// Summary holds the measures of a filtered row set. A selection with no
// matching rows is valid and zero-filled, never an error.
type Summary struct {
	Rows            int     `json:"rows"`
	TotalAmount     float64 `json:"total_amount"`
	AvgAmount       float64 `json:"avg_amount"`
	TotalQuantity   int     `json:"total_quantity"`
	UniqueCustomers int     `json:"unique_customers"`
}

// Selection is the result of a slice or dice: the matching rows plus their
// summary measures.
type Selection struct {
	Rows    []models.Transaction `json:"rows"`
	Summary Summary              `json:"summary"`
}

// Slice filters the fact table to rows whose field equals value, e.g.
// Slice("country", "United Kingdom"). An unmatched value yields an empty
// selection.
func (c *Cube) Slice(field, value string) (*Selection, error) {
	if !isGroupField(field) {
		return nil, errors.Validationf("unknown dimension field %q", field)
	}
	return c.Dice([]Predicate{Eq(field, value)})
}

// Predicate is one conjunct of a dice filter. Equality on a dimension field
// compares Value; comparisons on a measure field compare Bound.
type Predicate struct {
	Field string  `json:"field"`
	Op    string  `json:"op"`
	Value string  `json:"value,omitempty"`
	Bound float64 `json:"bound,omitempty"`
}

const (
	opEq = "eq"
	opGT = "gt"
	opGE = "ge"
	opLT = "lt"
	opLE = "le"
)

// Eq matches rows whose dimension field equals value.
func Eq(field, value string) Predicate {
	return Predicate{Field: field, Op: opEq, Value: value}
}

// GreaterThan matches rows whose measure field exceeds bound.
func GreaterThan(field string, bound float64) Predicate {
	return Predicate{Field: field, Op: opGT, Bound: bound}
}

// AtLeast matches rows whose measure field is at least bound.
func AtLeast(field string, bound float64) Predicate {
	return Predicate{Field: field, Op: opGE, Bound: bound}
}

// LessThan matches rows whose measure field is below bound.
func LessThan(field string, bound float64) Predicate {
	return Predicate{Field: field, Op: opLT, Bound: bound}
}

// AtMost matches rows whose measure field is at most bound.
func AtMost(field string, bound float64) Predicate {
	return Predicate{Field: field, Op: opLE, Bound: bound}
}

// Dice filters the fact table to rows satisfying every predicate. Predicates
// referencing unknown fields or mixing dimension fields with numeric
// operators fail fast before any row is examined.
func (c *Cube) Dice(predicates []Predicate) (*Selection, error) {
	for _, p := range predicates {
		if err := p.validate(); err != nil {
			return nil, err
		}
	}

	sel := &Selection{Rows: []models.Transaction{}}
	acc := newAccumulator()
	for _, tx := range c.facts {
		if !matchesAll(tx, predicates) {
			continue
		}
		sel.Rows = append(sel.Rows, tx)
		acc.add(tx)
	}

	sel.Summary = Summary{
		Rows:            acc.rows,
		TotalAmount:     acc.amount,
		TotalQuantity:   acc.quantity,
		UniqueCustomers: len(acc.customers),
	}
	if acc.rows > 0 {
		sel.Summary.AvgAmount = acc.amount / float64(acc.rows)
	}
	return sel, nil
}

func (p Predicate) validate() error {
	switch {
	case isGroupField(p.Field):
		if p.Op != opEq {
			return errors.Validationf("dimension field %q supports only equality, got %q", p.Field, p.Op)
		}
	case isMeasureField(p.Field):
		switch p.Op {
		case opEq, opGT, opGE, opLT, opLE:
		default:
			return errors.Validationf("unknown operator %q for measure field %q", p.Op, p.Field)
		}
	default:
		return errors.Validationf("predicate references unknown field %q", p.Field)
	}
	return nil
}

func matchesAll(tx models.Transaction, predicates []Predicate) bool {
	for _, p := range predicates {
		if !p.matches(tx) {
			return false
		}
	}
	return true
}

func (p Predicate) matches(tx models.Transaction) bool {
	if isGroupField(p.Field) {
		return memberOf(tx, p.Field) == p.Value
	}
	v := measureOf(tx, p.Field)
	switch p.Op {
	case opEq:
		return v == p.Bound
	case opGT:
		return v > p.Bound
	case opGE:
		return v >= p.Bound
	case opLT:
		return v < p.Bound
	case opLE:
		return v <= p.Bound
	}
	return false
}
