package services

// Domain events fired through pkg/event.
const (
	EventLogin         = "auth.login"
	EventLoginFailed   = "auth.login_failed"
	EventLogout        = "auth.logout"
	EventSaleCompleted = "sale.completed"
	EventSaleFailed    = "sale.failed"
)

// AuthEvent is the payload of the auth.* events.
type AuthEvent struct {
	TerminalID string
	Username   string
}

// SaleEvent is the payload of the sale.* events.
type SaleEvent struct {
	TerminalID    string
	InvoiceNumber string
	Total         float64
	PointsEarned  int
	PaymentMethod string
	Lines         int
}
