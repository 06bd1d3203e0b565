// Package model defines the value types shared across the application.
package model

// Charge is a single billed settlement item owed by the account: a rent
// installment, a utility charge, an adjustment. Values are stored positive
// (amount owed); the portal encodes them negative on the wire and the
// fetcher negates them.
//
// Charge is an immutable value type: two charges are equal iff all fields
// are equal, so it can be used directly as a map key for diffing.
type Charge struct {
	ID      OptInt  `json:"id"`
	Year    int     `json:"year"`
	Period  OptInt  `json:"period"`
	Title   string  `json:"title"`
	DueDate Date    `json:"due_date"`
	Value   float64 `json:"value"`
}

// Payment is a recorded payment applied to the account. Equal by value,
// like Charge.
type Payment struct {
	Date  Date    `json:"date"`
	Value float64 `json:"value"`
}
