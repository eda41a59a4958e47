// internal/models/common.go
package models

import (
	"time"
)

// Base model for mirror rows. IDs are sequential integers so they line up
// with the u64 identifiers the ledger-side module hands out.
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `json:"created_at"`
}

// Capability names the fixed set of roles a user can hold. Role checks are
// explicit membership tests against these values, never probes of loose keys.
type Capability string

const (
	CapabilityCreator    Capability = "is_creator"
	CapabilityAdvertiser Capability = "is_advertiser"
	CapabilityAttester   Capability = "is_attester"
)

// RoleSet is the wire form of a user's capabilities.
type RoleSet struct {
	IsCreator    bool `json:"is_creator"`
	IsAdvertiser bool `json:"is_advertiser"`
	IsAttester   bool `json:"is_attester"`
}

func (r RoleSet) Has(c Capability) bool {
	switch c {
	case CapabilityCreator:
		return r.IsCreator
	case CapabilityAdvertiser:
		return r.IsAdvertiser
	case CapabilityAttester:
		return r.IsAttester
	}
	return false
}
