package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Type is the side of a debt: money owed to us or money we owe.
type Type string

const (
	TypeReceivable Type = "receivable"
	TypePayable    Type = "payable"
)

func ParseType(raw string) (Type, bool) {
	switch Type(strings.ToLower(strings.TrimSpace(raw))) {
	case TypeReceivable:
		return TypeReceivable, true
	case TypePayable:
		return TypePayable, true
	default:
		return "", false
	}
}

// Debt tracks an amount owed and how much of it has been settled.
// PaidAmount may exceed TotalAmount.
type Debt struct {
	ID           snowflake.ID  `gorm:"primaryKey" json:"id"`
	PartnerID    snowflake.ID  `gorm:"not null;index" json:"partner_id"`
	Type         Type          `gorm:"type:text;not null;index" json:"type"`
	TotalAmount  int64         `gorm:"not null;default:0" json:"total_amount"`
	PaidAmount   int64         `gorm:"not null;default:0" json:"paid_amount"`
	DueDate      *time.Time    `json:"due_date,omitempty"`
	Notes        string        `gorm:"not null;default:''" json:"notes"`
	SourceCostID *snowflake.ID `gorm:"uniqueIndex:ux_debts_source_cost_id" json:"source_cost_id,omitempty"`
	CreatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Debt) TableName() string { return "debts" }

// Derived reports whether the debt is owned by a cost.
func (d Debt) Derived() bool { return d.SourceCostID != nil }

// Outstanding is total minus paid and goes negative on over-payment.
func (d Debt) Outstanding() int64 { return d.TotalAmount - d.PaidAmount }
