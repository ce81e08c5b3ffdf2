package memory

import (
	"github.com/shopspring/decimal"

	"github.com/TemirB/wb-tech-orders/internal/domain"
)

// Demo catalog ids. They match the rows seeded by the Postgres migrations.
const (
	DemoCustomerID = "6f1c2a52-3b7e-4c8e-9a51-0d6c1f0e2a11"
	DemoKeyboardID = "0b8f5a44-6a0e-4f1e-8f3a-5d2c9b7e1a01"
	DemoMouseID    = "0b8f5a44-6a0e-4f1e-8f3a-5d2c9b7e1a02"
	DemoMonitorID  = "0b8f5a44-6a0e-4f1e-8f3a-5d2c9b7e1a03"
)

// SeedDemo loads one customer and three products.
func (s *Store) SeedDemo() {
	s.AddCustomer(domain.Customer{ID: DemoCustomerID, Name: "Demo Customer", Email: "demo@example.com"})
	s.AddProduct(domain.Product{ID: DemoKeyboardID, Name: "Keyboard", Price: decimal.RequireFromString("49.90"), Quantity: 100})
	s.AddProduct(domain.Product{ID: DemoMouseID, Name: "Mouse", Price: decimal.RequireFromString("19.50"), Quantity: 250})
	s.AddProduct(domain.Product{ID: DemoMonitorID, Name: "Monitor", Price: decimal.RequireFromString("189.00"), Quantity: 20})
}
