package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Attachment is the persisted record of a stored attachment. Only the basename
// and scope are kept; keys and URLs are always recomputed from the definition.
type Attachment struct {
	ID               uuid.UUID        `db:"id" json:"id"`
	Definition       string           `db:"definition" json:"definition"`
	Basename         string           `db:"basename" json:"basename"`
	OriginalFilename string           `db:"original_filename" json:"original_filename"`
	Scope            Scope            `db:"scope" json:"scope,omitempty"`
	Status           AttachmentStatus `db:"status" json:"status"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// Scope is the caller context an attachment was stored under. It is stored as
// JSONB.
type Scope map[string]any

// ScopeValue returns the string form of key.
func (s Scope) ScopeValue(key string) (string, bool) {
	v, ok := s[key]
	if !ok || v == nil {
		return "", false
	}
	str := fmt.Sprint(v)
	return str, str != ""
}

func (s Scope) Value() (driver.Value, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s)
}

func (s *Scope) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("scope: cannot scan %T", src)
	}
}
