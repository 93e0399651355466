package models

import "time"

type VendingMachine struct {
	ID        int32     `json:"id"`
	Name      string    `json:"name"`
	Slots     []Slot    `json:"slots,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
