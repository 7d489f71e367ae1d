// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus int

const (
	Pending OrderStatus = iota
	Shipped
	Delivered
	Cancelled
)

var statusNames = [...]string{"Pending", "Shipped", "Delivered", "Cancelled"}

func (s OrderStatus) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("OrderStatus(%d)", int(s))
	}
	return statusNames[s]
}

// UnmarshalText accepts a status label.
func (s *OrderStatus) UnmarshalText(text []byte) error {
	for i, name := range statusNames {
		if name == string(text) {
			*s = OrderStatus(i)
			return nil
		}
	}
	return fmt.Errorf("unknown order status %q", text)
}

type Address struct {
	Street  string  `json:"street"`
	City    string  `json:"city"`
	Zip     *string `json:"zip"`
	Country string  `json:"country"`
}

type Customer struct {
	Name    string   `json:"name"`
	Email   *string  `json:"email"`
	Address Address  `json:"address"`
	Tags    []string `json:"tags"`
}

type Line struct {
	SKU      string          `json:"sku"`
	Quantity int32           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Order is the row type exported by the command. Customer fields become
// Customer_* columns; lines are summarized by LineCount.
type Order struct {
	ID        string          `json:"id"`
	Placed    time.Time       `json:"placed"`
	Status    OrderStatus     `json:"status"`
	Total     decimal.Decimal `json:"total"`
	Discount  *float64        `json:"discount"`
	Express   bool            `json:"express"`
	Customer  *Customer       `json:"customer"`
	Lines     []Line          `json:"lines" rowframe:"-"`
	LineCount int32           `json:"-"`
}

// LoadOrders reads a JSON array of orders from path. Orders without an id
// get a generated one.
func LoadOrders(path string) ([]Order, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}
	var orders []Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, fmt.Errorf("failed to parse orders from %s: %w", path, err)
	}
	return prepare(orders), nil
}

func prepare(orders []Order) []Order {
	for i := range orders {
		if orders[i].ID == "" {
			orders[i].ID = uuid.NewString()
		}
		orders[i].LineCount = int32(len(orders[i].Lines))
	}
	return orders
}

// SampleOrders returns the built-in demo orders.
func SampleOrders() []Order {
	zip := "10115"
	email := "ada@example.com"
	discount := 0.1
	placed := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	return prepare([]Order{
		{
			Placed:   placed,
			Status:   Shipped,
			Total:    decimal.RequireFromString("129.90"),
			Discount: &discount,
			Express:  true,
			Customer: &Customer{
				Name:    "Ada",
				Email:   &email,
				Address: Address{Street: "Invalidenstr. 1", City: "Berlin", Zip: &zip, Country: "DE"},
				Tags:    []string{"vip"},
			},
			Lines: []Line{
				{SKU: "A-1", Quantity: 2, Price: decimal.RequireFromString("49.95")},
				{SKU: "B-7", Quantity: 1, Price: decimal.RequireFromString("30.00")},
			},
		},
		{
			Placed: placed.Add(26 * time.Hour),
			Status: Pending,
			Total:  decimal.RequireFromString("15.00"),
			Customer: &Customer{
				Name:    "Grace",
				Address: Address{City: "Stockholm", Country: "SE"},
			},
			Lines: []Line{{SKU: "C-3", Quantity: 3, Price: decimal.RequireFromString("5.00")}},
		},
		{
			Placed: placed.Add(72 * time.Hour),
			Status: Cancelled,
			Total:  decimal.Zero,
		},
	})
}
