package types

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Compile-time interface assertions. Scan is on pointer receivers; Value is on
// value receivers.
var (
	_ sql.Scanner   = (*ChannelList)(nil)
	_ driver.Valuer = ChannelList(nil)
	_ sql.Scanner   = (*PatternData)(nil)
	_ driver.Valuer = PatternData(nil)
)

// ChannelList is the ordered set of delivery methods of a condition, stored as JSONB.
type ChannelList []ChannelType

// PatternData is free-form structured context attached to an alert, stored as JSONB.
type PatternData map[string]any

// scanJSONB scans a JSONB database value into a Go pointer. It handles nil,
// []byte and string representations from different drivers.
func scanJSONB(dest interface{}, value interface{}) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("jsonb: unsupported scan type %T", value)
	}
	return json.Unmarshal(data, dest)
}

// Scan implements the sql.Scanner interface for reading JSONB from the database.
func (cl *ChannelList) Scan(value interface{}) error {
	if value == nil {
		*cl = nil
		return nil
	}
	return scanJSONB(cl, value)
}

// Value implements the driver.Valuer interface. A nil list is stored as an
// empty JSON array so the column stays non-null.
func (cl ChannelList) Value() (driver.Value, error) {
	if cl == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]ChannelType(cl))
}

// Scan implements the sql.Scanner interface for reading JSONB from the database.
func (pd *PatternData) Scan(value interface{}) error {
	if value == nil {
		*pd = nil
		return nil
	}
	return scanJSONB(pd, value)
}

// Value implements the driver.Valuer interface for writing JSONB to the database.
func (pd PatternData) Value() (driver.Value, error) {
	if pd == nil {
		return nil, nil
	}
	return json.Marshal(map[string]any(pd))
}
