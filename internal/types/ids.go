package types

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ID wraps a UUID string and provides type-safe generation, validation,
// and JSON serialization for every entity identifier in the system.
type ID string

// namespaceCognee is the UUID v5 namespace for content-derived identifiers.
// Deriving node IDs from content under a fixed namespace is what makes
// repeated cognify runs upsert instead of duplicate.
var namespaceCognee = uuid.MustParse("7d9fca1e-3b96-4d58-9f13-5a4f2ab6c001")

// NewID generates a new random UUID v4 ID.
func NewID() ID {
	return ID(uuid.New().String())
}

// DeriveID returns a deterministic ID for the given content string.
// The same content always produces the same ID.
func DeriveID(content string) ID {
	return ID(uuid.NewSHA1(uuid.UUID(namespaceCognee), []byte(content)).String())
}

// ParseID parses and validates a string as a UUID.
func ParseID(s string) (ID, error) {
	if s == "" {
		return "", fmt.Errorf("ID cannot be empty")
	}

	parsed, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid UUID format: %w", err)
	}

	return ID(parsed.String()), nil
}

// Validate checks that the ID is a non-empty, well-formed UUID.
func (id ID) Validate() error {
	if id == "" {
		return fmt.Errorf("ID cannot be empty")
	}

	if _, err := uuid.Parse(string(id)); err != nil {
		return fmt.Errorf("invalid UUID format: %w", err)
	}

	return nil
}

// String returns the string representation of the ID.
func (id ID) String() string {
	return string(id)
}

// IsZero reports whether the ID is empty.
func (id ID) IsZero() bool {
	return id == ""
}

// Short returns the first eight characters of the ID, for log output.
func (id ID) Short() string {
	if len(id) < 8 {
		return string(id)
	}
	return string(id[:8])
}

// MarshalJSON implements json.Marshaler.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("failed to unmarshal ID: %w", err)
	}

	if s == "" || s == "null" {
		*id = ""
		return nil
	}

	parsed, err := ParseID(s)
	if err != nil {
		return err
	}

	*id = parsed
	return nil
}
