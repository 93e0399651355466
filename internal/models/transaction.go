package models

import "time"

// Transaction is a pending or confirmed purchase. ProductID and
// VendingMachineID are snapshots taken from the slot at creation time;
// later slot edits do not change them.
type Transaction struct {
	ID               int32     `json:"id"`
	Code             string    `json:"code"`
	UserID           int32     `json:"userId"`
	SlotID           int32     `json:"slotId"`
	ProductID        int32     `json:"productId"`
	VendingMachineID int32     `json:"vendingMachineId"`
	HasConfirmed     bool      `json:"hasConfirmed"`
	CreatedAt        time.Time `json:"createdAt"`
}

// DispenseInfo is what the physical machine needs after a successful
// approval: which slot to open and what it holds.
type DispenseInfo struct {
	SlotID       int32  `json:"slotId"`
	SlotIndex    int32  `json:"slotIndex"`
	ProductID    int32  `json:"productId"`
	ProductName  string `json:"productName"`
	ProductPrice int32  `json:"productPrice"`
}

// ApprovalResult is the outcome of a committed approval.
type ApprovalResult struct {
	Transaction Transaction  `json:"transaction"`
	Dispense    DispenseInfo `json:"dispense"`
	NewStock    int32        `json:"newStock"`
	NewBalance  int32        `json:"newBalance"`
}
