package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/siherrmann/mesher/helper"
)

// Metadata is the free-form JSON payload attached to content nodes,
// suggestion evidence and analysis results, stored as JSONB in PostgreSQL.
// Keys like "failed_lenses", "node_positions" or "related_terms" are
// documented on the component that writes them.
type Metadata map[string]interface{}

// Value implements driver.Valuer so metadata writes as a JSONB column
func (m Metadata) Value() (driver.Value, error) {
	return m.Marshal()
}

// Scan implements sql.Scanner so metadata reads back from a JSONB column
func (m *Metadata) Scan(value interface{}) error {
	return m.Unmarshal(value)
}

// Marshal converts the metadata to JSON bytes
func (m Metadata) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// Unmarshal fills the metadata from JSON bytes or another Metadata value.
// A nil value yields empty metadata, never nil, so callers can index the
// result without a guard.
func (m *Metadata) Unmarshal(value interface{}) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}

	if s, ok := value.(Metadata); ok {
		*m = Metadata(s)
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return helper.NewError("byte assertion", errors.New("type assertion to []byte failed"))
	}

	return json.Unmarshal(b, m)
}
