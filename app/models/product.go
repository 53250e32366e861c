package models

// Product is one catalog entry. Quantity is the stock left at the backend.
type Product struct {
	ProductID    int     `json:"product_id"`
	Name         string  `json:"name"`
	CategoryName string  `json:"category_name"`
	Price        float64 `json:"price"`
	Quantity     int     `json:"quantity"`
}

// Available reports whether the product can be added to a cart.
func (p Product) Available() bool { return p.Quantity > 0 }

// Category is a product category. Only the name is rendered.
type Category struct {
	CategoryID  int    `json:"category_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Customer is the backend's record for a phone number.
type Customer struct {
	Name          string `json:"name"`
	Phone         string `json:"phone,omitempty"`
	LoyaltyPoints int    `json:"loyalty_points"`
}
