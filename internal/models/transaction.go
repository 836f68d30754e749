package models

import "time"

// Transaction is one cleaned invoice line from the retail dataset.
// Amount is derived as Quantity * UnitPrice during ingestion.
type Transaction struct {
	InvoiceNo   string
	Date        time.Time
	CustomerID  string
	Country     string
	StockCode   string
	Description string
	UnitPrice   float64
	Quantity    int
	Amount      float64
}

type CountryRevenue struct {
	Country         string  `json:"country"`
	TotalRevenue    float64 `json:"total_revenue"`
	Transactions    int     `json:"transactions"`
	UniqueCustomers int     `json:"unique_customers"`
}

type ProductRevenue struct {
	StockCode   string  `json:"stock_code"`
	Description string  `json:"description"`
	Revenue     float64 `json:"revenue"`
	UnitsSold   int     `json:"units_sold"`
}

type MonthlyData struct {
	Month        string  `json:"month"`
	Revenue      float64 `json:"revenue"`
	Transactions int     `json:"transactions"`
}
