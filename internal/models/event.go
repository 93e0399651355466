package models

// TransactionEvent is the envelope published to the transactions topic on
// every ledger state change and consumed by the cache invalidator.
type TransactionEvent struct {
	EventID          string `json:"event_id"`
	EventType        string `json:"event_type"`
	TransactionID    int32  `json:"transaction_id"`
	Code             string `json:"code"`
	UserID           int32  `json:"user_id"`
	SlotID           int32  `json:"slot_id"`
	ProductID        int32  `json:"product_id"`
	VendingMachineID int32  `json:"vending_machine_id"`
	CreatedAt        string `json:"created_at"`
}

const (
	EventTransactionCreated   = "transaction_created"
	EventTransactionApproved  = "transaction_approved"
	EventTransactionCancelled = "transaction_cancelled"
	EventUserRegistered       = "user_registered"
)
