// Package cube implements OLAP-style aggregation over the cleaned retail
// fact table: roll-up, drill-down, slice, dice, and pivot. Every operation
// is a pure read-only pass over an immutable fact snapshot; results depend
// only on the facts and the supplied parameters.
package cube

import (
	"math"
	"sort"

	"retail-analytics/internal/errors"
	"retail-analytics/internal/models"
)

// Cube holds a fact table snapshot and the dimension hierarchies it was
// constructed with. The snapshot is never mutated.
type Cube struct {
	facts       []models.Transaction
	hierarchies map[string]Hierarchy
}

// New builds a cube with the default retail hierarchies.
func New(facts []models.Transaction) *Cube {
	return NewWithConfig(facts, DefaultConfig())
}

// NewWithConfig builds a cube with explicit hierarchies.
func NewWithConfig(facts []models.Transaction, cfg Config) *Cube {
	hs := make(map[string]Hierarchy, len(cfg.Hierarchies))
	for _, h := range cfg.Hierarchies {
		hs[h.Dimension] = h
	}
	return &Cube{facts: facts, hierarchies: hs}
}

// Facts returns the underlying fact snapshot.
func (c *Cube) Facts() []models.Transaction {
	return c.facts
}

// AggregateCell is one group of a roll-up or drill-down: the measures of all
// fact rows sharing a member at the grouping level. Monetary values are kept
// unrounded; round for display only.
type AggregateCell struct {
	Level           string  `json:"level"`
	Member          string  `json:"member"`
	TotalAmount     float64 `json:"total_amount"`
	AvgAmount       float64 `json:"avg_amount"`
	Transactions    int     `json:"transactions"`
	TotalQuantity   int     `json:"total_quantity"`
	UniqueCustomers int     `json:"unique_customers"`
}

// RollUp aggregates at a coarser level of the dimension's hierarchy, e.g.
// month to year. The target level must be coarser than the source level.
// Cells are ordered by member ascending.
func (c *Cube) RollUp(dimension, from, to string) ([]AggregateCell, error) {
	fi, ti, err := c.levelPair(dimension, from, to)
	if err != nil {
		return nil, err
	}
	if ti <= fi {
		return nil, errors.Hierarchyf("roll-up in dimension %q: level %q is not coarser than %q", dimension, to, from)
	}
	return c.aggregateByLevel(to), nil
}

// DrillDown aggregates at a finer level of the dimension's hierarchy, e.g.
// year to month. The target level must be finer than the source level.
// An empty fact table yields an empty sequence, not an error.
func (c *Cube) DrillDown(dimension, from, to string) ([]AggregateCell, error) {
	fi, ti, err := c.levelPair(dimension, from, to)
	if err != nil {
		return nil, err
	}
	if ti >= fi {
		return nil, errors.Hierarchyf("drill-down in dimension %q: level %q is not finer than %q", dimension, to, from)
	}
	return c.aggregateByLevel(to), nil
}

func (c *Cube) levelPair(dimension, from, to string) (int, int, error) {
	h, ok := c.hierarchies[dimension]
	if !ok {
		return 0, 0, errors.Validationf("unknown dimension %q", dimension)
	}
	fi, ok := h.levelIndex(from)
	if !ok {
		return 0, 0, errors.Validationf("dimension %q has no level %q", dimension, from)
	}
	ti, ok := h.levelIndex(to)
	if !ok {
		return 0, 0, errors.Validationf("dimension %q has no level %q", dimension, to)
	}
	return fi, ti, nil
}

type accumulator struct {
	amount    float64
	quantity  int
	rows      int
	customers map[string]struct{}
}

func newAccumulator() *accumulator {
	return &accumulator{customers: make(map[string]struct{})}
}

func (a *accumulator) add(tx models.Transaction) {
	a.amount += tx.Amount
	a.quantity += tx.Quantity
	a.rows++
	a.customers[tx.CustomerID] = struct{}{}
}

func (c *Cube) aggregateByLevel(level string) []AggregateCell {
	groups := make(map[string]*accumulator)
	for _, tx := range c.facts {
		member := memberOf(tx, level)
		acc, ok := groups[member]
		if !ok {
			acc = newAccumulator()
			groups[member] = acc
		}
		acc.add(tx)
	}

	members := make([]string, 0, len(groups))
	for m := range groups {
		members = append(members, m)
	}
	sort.Strings(members)

	cells := make([]AggregateCell, 0, len(members))
	for _, m := range members {
		acc := groups[m]
		cells = append(cells, AggregateCell{
			Level:           level,
			Member:          m,
			TotalAmount:     acc.amount,
			AvgAmount:       acc.amount / float64(acc.rows),
			Transactions:    acc.rows,
			TotalQuantity:   acc.quantity,
			UniqueCustomers: len(acc.customers),
		})
	}
	return cells
}

// Round2 rounds to 2 decimal places. Display helper only; aggregation always
// accumulates unrounded values.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
