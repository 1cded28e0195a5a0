package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Type is the direction of a cash movement.
type Type string

const (
	// TypeReceipt is money received; it settles receivable debts.
	TypeReceipt Type = "receipt"
	// TypePayment is money paid out; it settles payable debts.
	TypePayment Type = "payment"
)

func ParseType(raw string) (Type, bool) {
	switch Type(strings.ToLower(strings.TrimSpace(raw))) {
	case TypeReceipt:
		return TypeReceipt, true
	case TypePayment:
		return TypePayment, true
	default:
		return "", false
	}
}

type Transaction struct {
	ID              snowflake.ID  `gorm:"primaryKey" json:"id"`
	Type            Type          `gorm:"type:text;not null;index" json:"type"`
	PartnerID       snowflake.ID  `gorm:"not null;index" json:"partner_id"`
	Amount          int64         `gorm:"not null" json:"amount"`
	TransactionDate time.Time     `gorm:"not null;index" json:"transaction_date"`
	DebtID          *snowflake.ID `gorm:"index" json:"debt_id,omitempty"`
	Description     string        `gorm:"not null;default:''" json:"description,omitempty"`
	CreatedAt       time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Transaction) TableName() string { return "transactions" }
