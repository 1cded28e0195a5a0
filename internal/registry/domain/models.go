package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// ParentType names the kind of record a cost is booked against.
type ParentType string

const (
	ParentContract ParentType = "contract"
	ParentProject  ParentType = "project"
)

func ParseParentType(raw string) (ParentType, bool) {
	switch ParentType(strings.ToLower(strings.TrimSpace(raw))) {
	case ParentContract:
		return ParentContract, true
	case ParentProject:
		return ParentProject, true
	default:
		return "", false
	}
}

// ParentRef points at a contract or project.
type ParentRef struct {
	Type ParentType   `json:"type"`
	ID   snowflake.ID `json:"id"`
}

func (r ParentRef) String() string {
	return string(r.Type) + ":" + r.ID.String()
}

type Contract struct {
	ID         snowflake.ID  `gorm:"primaryKey" json:"id"`
	Code       string        `gorm:"type:text;not null;uniqueIndex:ux_contracts_code" json:"code"`
	Name       string        `gorm:"not null" json:"name"`
	ClientID   *snowflake.ID `gorm:"index" json:"client_id,omitempty"`
	TotalValue int64         `gorm:"not null;default:0" json:"total_value"`
	SignedAt   *time.Time    `json:"signed_at,omitempty"`
	CreatedAt  time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Contract) TableName() string { return "contracts" }

type Project struct {
	ID         snowflake.ID  `gorm:"primaryKey" json:"id"`
	Code       string        `gorm:"type:text;not null;uniqueIndex:ux_projects_code" json:"code"`
	Name       string        `gorm:"not null" json:"name"`
	ContractID *snowflake.ID `gorm:"index" json:"contract_id,omitempty"`
	TotalValue int64         `gorm:"not null;default:0" json:"total_value"`
	CreatedAt  time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Project) TableName() string { return "projects" }
