package schema

import (
	"fmt"
	"strings"
)

// BackendRef points at a data set inside one backend type.
type BackendRef struct {
	Type BackendType `json:"type" mapstructure:"type"`
	Name string      `json:"name" mapstructure:"name"`
}

// String renders the ref as type:name.
func (r BackendRef) String() string {
	return fmt.Sprintf("%s:%s", r.Type, r.Name)
}

// IsZero reports whether the ref is unset.
func (r BackendRef) IsZero() bool {
	return r.Type == "" && r.Name == ""
}

// ParseBackendRef parses a type:name string.
func ParseBackendRef(s string) (BackendRef, error) {
	typ, name, ok := strings.Cut(s, ":")
	if !ok || name == "" {
		return BackendRef{}, fmt.Errorf("invalid backend ref %q, expected type:name", s)
	}
	ref := BackendRef{Type: BackendType(strings.ToLower(typ)), Name: name}
	if _, ok := ValidBackendTypes[ref.Type]; !ok {
		return BackendRef{}, fmt.Errorf("invalid backend type %q, must be csv or parquet", typ)
	}
	return ref, nil
}

// TrackedSource is a logical data source split across a raw and an indexed backend.
type TrackedSource struct {
	ID         string     `json:"id"`
	Raw        BackendRef `json:"raw"`
	Indexed    BackendRef `json:"indexed"`
	TimeField  string     `json:"time_field"`
	WindowSize int64      `json:"window_size"` // seconds
	Lookback   int64      `json:"lookback"`    // seconds, 0 disables bounds seeding
	Enabled    bool       `json:"enabled"`
}

// Validate checks that the source can be scheduled and split.
func (s TrackedSource) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("source id cannot be empty")
	}
	if _, ok := ValidBackendTypes[s.Raw.Type]; !ok || s.Raw.Name == "" {
		return fmt.Errorf("source %s: invalid raw backend %q", s.ID, s.Raw)
	}
	if _, ok := ValidBackendTypes[s.Indexed.Type]; !ok || s.Indexed.Name == "" {
		return fmt.Errorf("source %s: invalid indexed backend %q", s.ID, s.Indexed)
	}
	if s.Raw == s.Indexed {
		return fmt.Errorf("source %s: raw and indexed backends must differ", s.ID)
	}
	if s.TimeField == "" {
		return fmt.Errorf("source %s: time field cannot be empty", s.ID)
	}
	if s.WindowSize <= 0 {
		return fmt.Errorf("source %s: window size must be positive, got %d", s.ID, s.WindowSize)
	}
	if s.Lookback < 0 {
		return fmt.Errorf("source %s: lookback cannot be negative", s.ID)
	}
	return nil
}
