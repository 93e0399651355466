package models

import "time"

// User is an account of any role. MachineID is set only for machine-role
// accounts and binds the account to the vending machine it runs on.
type User struct {
	ID           int32     `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Balance      int32     `json:"balance"`
	MachineID    *int32    `json:"machineId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}
