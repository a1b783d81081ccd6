package models

import (
	"encoding/json"
	"time"
)

// ChannelState is the persisted broadcast anchor for one channel. Only the
// inputs of the rotation build are stored; the rotation itself is derived
// and never written to disk.
type ChannelState struct {
	ChannelID   string    `json:"channel_id" gorm:"type:text;primaryKey;column:channel_id"`
	Epoch       time.Time `json:"epoch" gorm:"type:datetime;not null;column:epoch"`
	Seed        int64     `json:"seed" gorm:"type:integer;not null;column:seed"`
	ShowOrder   string    `json:"show_order" gorm:"type:text;not null;column:show_order"`     // JSON array of item IDs
	Fingerprint string    `json:"fingerprint" gorm:"type:text;not null;column:fingerprint"`   // content hash the state was built against
	Policy      string    `json:"policy" gorm:"type:text;not null;column:policy"`             // JSON BroadcastPolicy snapshot
	UpdatedAt   time.Time `json:"updated_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:updated_at"`
}

// TableName overrides the GORM table name
func (ChannelState) TableName() string {
	return "channel_states"
}

// SetShowOrder stores the ordered item IDs as JSON
func (s *ChannelState) SetShowOrder(order []string) error {
	data, err := json.Marshal(order)
	if err != nil {
		return err
	}
	s.ShowOrder = string(data)
	return nil
}

// GetShowOrder decodes the persisted show order
func (s *ChannelState) GetShowOrder() ([]string, error) {
	if s.ShowOrder == "" {
		return nil, nil
	}
	var order []string
	if err := json.Unmarshal([]byte(s.ShowOrder), &order); err != nil {
		return nil, err
	}
	return order, nil
}

// SetPolicy stores the policy snapshot as JSON
func (s *ChannelState) SetPolicy(p BroadcastPolicy) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	s.Policy = string(data)
	return nil
}

// GetPolicy decodes the persisted policy snapshot
func (s *ChannelState) GetPolicy() (BroadcastPolicy, error) {
	var p BroadcastPolicy
	if s.Policy == "" {
		return p, nil
	}
	err := json.Unmarshal([]byte(s.Policy), &p)
	return p, err
}
