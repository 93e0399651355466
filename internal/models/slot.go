package models

import "time"

// Slot is a numbered stock position inside a vending machine. A slot with
// ProductID == nil is unstocked regardless of its Stock counter.
type Slot struct {
	ID               int32     `json:"id"`
	Index            int32     `json:"index"`
	Stock            int32     `json:"stock"`
	ProductID        *int32    `json:"productId"`
	VendingMachineID int32     `json:"vendingMachineId"`
	CreatedAt        time.Time `json:"createdAt"`
}

// SlotDetails is a slot joined with its assigned product, used by the
// machine-facing inventory listing.
type SlotDetails struct {
	Slot
	Product *Product `json:"product"`
}
