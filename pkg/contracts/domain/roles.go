package domain

import (
	"encoding/json"
	"fmt"
)

// Role is the semantic meaning of a statement column.
type Role string

const (
	RoleOpenTime   Role = "open_time"
	RoleCloseTime  Role = "close_time"
	RoleProfit     Role = "profit"
	RoleSwap       Role = "swap"
	RoleCommission Role = "commission"
	RoleSymbol     Role = "symbol"
)

// RoleTime names the requirement "open_time or close_time" in errors.
const RoleTime Role = "time"

// Roles lists every role in resolution order.
func Roles() []Role {
	return []Role{RoleCloseTime, RoleOpenTime, RoleSymbol, RoleSwap, RoleCommission, RoleProfit}
}

// Valid reports whether r is one of the column roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOpenTime, RoleCloseTime, RoleProfit, RoleSwap, RoleCommission, RoleSymbol:
		return true
	}
	return false
}

// ColumnRef identifies a column of a RawTable.
type ColumnRef struct {
	Index int    `json:"index"`
	Label string `json:"label"`
}

// ColumnRoleMap binds roles to columns. The zero value is an empty map.
type ColumnRoleMap struct {
	refs map[Role]ColumnRef
}

// NewColumnRoleMap returns an empty map.
func NewColumnRoleMap() ColumnRoleMap {
	return ColumnRoleMap{refs: make(map[Role]ColumnRef)}
}

// Bind assigns a column to role, replacing any previous binding.
func (m *ColumnRoleMap) Bind(role Role, ref ColumnRef) {
	if !role.Valid() {
		panic(fmt.Sprintf("domain: binding unknown role %q", role))
	}
	if m.refs == nil {
		m.refs = make(map[Role]ColumnRef)
	}
	m.refs[role] = ref
}

// Get returns the column bound to role.
func (m ColumnRoleMap) Get(role Role) (ColumnRef, bool) {
	ref, ok := m.refs[role]
	return ref, ok
}

// Has reports whether role is bound.
func (m ColumnRoleMap) Has(role Role) bool {
	_, ok := m.refs[role]
	return ok
}

// IsBound reports whether column index is already used by any role.
func (m ColumnRoleMap) IsBound(index int) bool {
	for _, ref := range m.refs {
		if ref.Index == index {
			return true
		}
	}
	return false
}

// Clone returns a map with the same bindings that shares no storage with m.
func (m ColumnRoleMap) Clone() ColumnRoleMap {
	if m.refs == nil {
		return ColumnRoleMap{}
	}
	out := ColumnRoleMap{refs: make(map[Role]ColumnRef, len(m.refs))}
	for role, ref := range m.refs {
		out.refs[role] = ref
	}
	return out
}

// Len returns the number of bound roles.
func (m ColumnRoleMap) Len() int {
	return len(m.refs)
}

// MarshalJSON renders the map as {"role": {"index": n, "label": "..."}}.
func (m ColumnRoleMap) MarshalJSON() ([]byte, error) {
	out := make(map[Role]ColumnRef, len(m.refs))
	for role, ref := range m.refs {
		out[role] = ref
	}
	return json.Marshal(out)
}
