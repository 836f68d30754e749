package cube

import (
	"fmt"
	"time"

	"retail-analytics/internal/models"
)

// Hierarchy is an ordered list of levels for one dimension, finest first.
// The date hierarchy is day -> month -> quarter -> year; flat dimensions
// such as country have a single level named after the dimension.
type Hierarchy struct {
	Dimension string
	Levels    []string
}

func (h Hierarchy) levelIndex(level string) (int, bool) {
	for i, l := range h.Levels {
		if l == level {
			return i, true
		}
	}
	return 0, false
}

// Config carries the dimension hierarchies for a cube. Passing it explicitly
// keeps the aggregator free of package-level state.
type Config struct {
	Hierarchies []Hierarchy
}

// DefaultConfig returns the hierarchies of the retail dataset.
func DefaultConfig() Config {
	return Config{
		Hierarchies: []Hierarchy{
			{Dimension: "date", Levels: []string{LevelDay, LevelMonth, LevelQuarter, LevelYear}},
			{Dimension: "country", Levels: []string{FieldCountry}},
			{Dimension: "customer", Levels: []string{FieldCustomer}},
			{Dimension: "product", Levels: []string{FieldProduct}},
		},
	}
}

// Grouping fields. Date levels bucket the invoice timestamp; the remaining
// fields read identifier columns directly.
const (
	LevelDay     = "day"
	LevelMonth   = "month"
	LevelQuarter = "quarter"
	LevelYear    = "year"

	FieldCountry  = "country"
	FieldCustomer = "customer"
	FieldProduct  = "product"
)

// Measure fields accepted by Dice and Pivot.
const (
	MeasureAmount   = "amount"
	MeasureQuantity = "quantity"
	MeasurePrice    = "price"
)

func isGroupField(field string) bool {
	switch field {
	case LevelDay, LevelMonth, LevelQuarter, LevelYear, FieldCountry, FieldCustomer, FieldProduct:
		return true
	}
	return false
}

func isMeasureField(field string) bool {
	switch field {
	case MeasureAmount, MeasureQuantity, MeasurePrice:
		return true
	}
	return false
}

// memberOf returns the grouping key of a fact row for a field. Date levels
// format so that lexical order equals chronological order.
func memberOf(tx models.Transaction, field string) string {
	switch field {
	case LevelDay:
		return tx.Date.Format("2006-01-02")
	case LevelMonth:
		return tx.Date.Format("2006-01")
	case LevelQuarter:
		return fmt.Sprintf("%d-Q%d", tx.Date.Year(), quarterOf(tx.Date))
	case LevelYear:
		return tx.Date.Format("2006")
	case FieldCountry:
		return tx.Country
	case FieldCustomer:
		return tx.CustomerID
	case FieldProduct:
		return tx.StockCode
	}
	return ""
}

func measureOf(tx models.Transaction, field string) float64 {
	switch field {
	case MeasureAmount:
		return tx.Amount
	case MeasureQuantity:
		return float64(tx.Quantity)
	case MeasurePrice:
		return tx.UnitPrice
	}
	return 0
}

func quarterOf(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}
