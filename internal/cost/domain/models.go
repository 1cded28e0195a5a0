package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	registrydomain "github.com/smallbiznis/backoffice/internal/registry/domain"
)

// Cost is an expense booked against a contract or a project. A cost that
// names a supplier owns exactly one payable debt.
type Cost struct {
	ID          snowflake.ID              `gorm:"primaryKey" json:"id"`
	ParentType  registrydomain.ParentType `gorm:"type:text;not null;index:ix_costs_parent,priority:1" json:"parent_type"`
	ParentID    snowflake.ID              `gorm:"not null;index:ix_costs_parent,priority:2" json:"parent_id"`
	Category    Category                  `gorm:"type:text;not null" json:"category"`
	SupplierID  *snowflake.ID             `gorm:"index" json:"supplier_id,omitempty"`
	Amount      int64                     `gorm:"not null;default:0" json:"amount"`
	Description string                    `gorm:"not null;default:''" json:"description,omitempty"`
	CreatedAt   time.Time                 `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time                 `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Cost) TableName() string { return "costs" }

func (c Cost) Parent() registrydomain.ParentRef {
	return registrydomain.ParentRef{Type: c.ParentType, ID: c.ParentID}
}

// DerivedNotes builds the notes of a cost's payable debt from the parent's
// name and the cost description.
func DerivedNotes(parentName, description string) string {
	parentName = strings.TrimSpace(parentName)
	description = strings.TrimSpace(description)
	if description == "" {
		return parentName
	}
	if parentName == "" {
		return description
	}
	return parentName + " - " + description
}
