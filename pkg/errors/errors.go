package errors

import "errors"

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrSlotNotFound        = errors.New("slot not found")
	ErrProductNotFound     = errors.New("product not found")
	ErrMachineNotFound     = errors.New("vending machine not found")
	ErrTransactionNotFound = errors.New("transaction not found")

	ErrOutOfStock        = errors.New("slot is out of stock")
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrAlreadyConfirmed  = errors.New("transaction already approved")
	ErrWrongMachine      = errors.New("invalid vending machine")
	ErrCodeCollision     = errors.New("redemption code already in use")
	ErrCodeExhausted     = errors.New("could not generate a unique redemption code")

	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidRole        = errors.New("invalid role")
	ErrForbidden          = errors.New("forbidden")
	ErrAdminProtected     = errors.New("admin cannot be deleted")

	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
)
