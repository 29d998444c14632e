package model

import (
	"time"

	"github.com/google/uuid"
)

// OperationName names a logical ledger operation.
type OperationName string

const (
	OpRegister    OperationName = "Register"
	OpTransfer    OperationName = "Transfer"
	OpSetVerified OperationName = "SetVerified"
)

// Operation is the unit handed to the commit transport.
type Operation struct {
	ID        uuid.UUID     `json:"id"`
	Name      OperationName `json:"name"`
	ProductID string        `json:"productId"`
	Actor     Identity      `json:"actor"`
	Amount    int64         `json:"amount,omitempty"`
	Record    *Product      `json:"record"`
	IssuedAt  time.Time     `json:"issuedAt"`
}

// NewOperation creates an operation with a fresh ID.
func NewOperation(name OperationName, actor Identity, record *Product, issuedAt time.Time) Operation {
	return Operation{
		ID:        uuid.New(),
		Name:      name,
		ProductID: record.ID,
		Actor:     actor,
		Record:    record,
		IssuedAt:  issuedAt,
	}
}
