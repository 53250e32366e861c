package models

import (
	"bytes"
	"encoding/json"
)

// Payment methods offered by the sales screen. They are sent verbatim.
const (
	PaymentCash     = "نقدي"
	PaymentCard     = "بطاقة"
	PaymentTransfer = "تحويل"
)

// PaymentOption is one entry of the payment select.
type PaymentOption struct {
	Value string
	Label string
}

// PaymentOptions lists the methods in display order.
var PaymentOptions = []PaymentOption{
	{Value: PaymentCash, Label: "نقدي"},
	{Value: PaymentCard, Label: "بطاقة"},
	{Value: PaymentTransfer, Label: "تحويل بنكي"},
}

// SaleItem is one line of a recorded sale.
type SaleItem struct {
	ProductID int     `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// SaleRequest is the body of POST /api/sales.
type SaleRequest struct {
	CustomerName  string     `json:"customer_name"`
	CustomerPhone string     `json:"customer_phone"`
	TotalAmount   float64    `json:"total_amount"`
	PaymentMethod string     `json:"payment_method"`
	Items         []SaleItem `json:"items"`
}

// SaleResult is what the backend reports for a recorded sale.
type SaleResult struct {
	InvoiceNumber InvoiceNumber `json:"invoice_number"`
	PointsEarned  int           `json:"points_earned"`
}

// InvoiceNumber accepts either a JSON string or a JSON number.
type InvoiceNumber string

// UnmarshalJSON implements json.Unmarshaler.
func (n *InvoiceNumber) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*n = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = InvoiceNumber(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return err
	}
	*n = InvoiceNumber(num.String())
	return nil
}
