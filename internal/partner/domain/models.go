package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Kind string

const (
	KindClient   Kind = "client"
	KindSupplier Kind = "supplier"
)

func ParseKind(raw string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindClient:
		return KindClient, true
	case KindSupplier:
		return KindSupplier, true
	default:
		return "", false
	}
}

// Partner is a client or supplier that costs, debts and transactions refer to.
type Partner struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	Kind      Kind              `gorm:"type:text;not null;index" json:"kind"`
	Name      string            `gorm:"not null" json:"name"`
	Phone     string            `gorm:"not null;default:''" json:"phone,omitempty"`
	Email     string            `gorm:"not null;default:''" json:"email,omitempty"`
	Address   string            `gorm:"not null;default:''" json:"address,omitempty"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Partner) TableName() string { return "partners" }
