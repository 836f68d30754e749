package cube

import (
	"sort"

	"retail-analytics/internal/errors"
)

// Aggregation selects how a pivot cell combines its matching rows.
type Aggregation string

const (
	AggSum   Aggregation = "sum"
	AggCount Aggregation = "count"
	AggMean  Aggregation = "mean"
)

// PivotTable is a rectangular cross-tabulation: one row per distinct value
// of the row dimension, one column per distinct value of the column
// dimension, both ascending. Combinations with no rows hold zero, never a
// missing cell. Totals apply the same aggregation to whole rows, columns,
// and the full table.
type PivotTable struct {
	RowDimension    string      `json:"row_dimension"`
	ColumnDimension string      `json:"column_dimension"`
	Measure         string      `json:"measure"`
	Aggregation     Aggregation `json:"aggregation"`
	RowLabels       []string    `json:"row_labels"`
	ColumnLabels    []string    `json:"column_labels"`
	Cells           [][]float64 `json:"cells"`
	RowTotals       []float64   `json:"row_totals"`
	ColumnTotals    []float64   `json:"column_totals"`
	GrandTotal      float64     `json:"grand_total"`
}

type pivotAcc struct {
	sum   float64
	count int
}

func (a *pivotAcc) value(agg Aggregation) float64 {
	switch agg {
	case AggCount:
		return float64(a.count)
	case AggMean:
		if a.count == 0 {
			return 0
		}
		return a.sum / float64(a.count)
	default:
		return a.sum
	}
}

// Pivot cross-tabulates the measure over two dimensions.
func (c *Cube) Pivot(rowDim, colDim, measure string, agg Aggregation) (*PivotTable, error) {
	if !isGroupField(rowDim) {
		return nil, errors.Validationf("unknown row dimension %q", rowDim)
	}
	if !isGroupField(colDim) {
		return nil, errors.Validationf("unknown column dimension %q", colDim)
	}
	if !isMeasureField(measure) {
		return nil, errors.Validationf("unknown measure %q", measure)
	}
	switch agg {
	case AggSum, AggCount, AggMean:
	default:
		return nil, errors.Validationf("unknown aggregation %q", agg)
	}

	type key struct{ row, col string }
	cells := make(map[key]*pivotAcc)
	rowAccs := make(map[string]*pivotAcc)
	colAccs := make(map[string]*pivotAcc)
	grand := &pivotAcc{}

	add := func(m map[string]*pivotAcc, k string, v float64) {
		a, ok := m[k]
		if !ok {
			a = &pivotAcc{}
			m[k] = a
		}
		a.sum += v
		a.count++
	}

	for _, tx := range c.facts {
		r := memberOf(tx, rowDim)
		cl := memberOf(tx, colDim)
		v := measureOf(tx, measure)

		k := key{r, cl}
		a, ok := cells[k]
		if !ok {
			a = &pivotAcc{}
			cells[k] = a
		}
		a.sum += v
		a.count++

		add(rowAccs, r, v)
		add(colAccs, cl, v)
		grand.sum += v
		grand.count++
	}

	rows := sortedKeys(rowAccs)
	cols := sortedKeys(colAccs)

	t := &PivotTable{
		RowDimension:    rowDim,
		ColumnDimension: colDim,
		Measure:         measure,
		Aggregation:     agg,
		RowLabels:       rows,
		ColumnLabels:    cols,
		Cells:           make([][]float64, len(rows)),
		RowTotals:       make([]float64, len(rows)),
		ColumnTotals:    make([]float64, len(cols)),
		GrandTotal:      grand.value(agg),
	}

	empty := pivotAcc{}
	for i, r := range rows {
		t.Cells[i] = make([]float64, len(cols))
		for j, cl := range cols {
			a := cells[key{r, cl}]
			if a == nil {
				a = &empty
			}
			t.Cells[i][j] = a.value(agg)
		}
		t.RowTotals[i] = rowAccs[r].value(agg)
	}
	for j, cl := range cols {
		t.ColumnTotals[j] = colAccs[cl].value(agg)
	}
	return t, nil
}

// Members lists the distinct values of a grouping field, ascending.
func (c *Cube) Members(field string) ([]string, error) {
	if !isGroupField(field) {
		return nil, errors.Validationf("unknown dimension field %q", field)
	}
	seen := make(map[string]struct{})
	for _, tx := range c.facts {
		seen[memberOf(tx, field)] = struct{}{}
	}
	members := make([]string, 0, len(seen))
	for m := range seen {
		members = append(members, m)
	}
	sort.Strings(members)
	return members, nil
}

func sortedKeys(m map[string]*pivotAcc) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
