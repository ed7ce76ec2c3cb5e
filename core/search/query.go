package search

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/huangsam/autoindex/internal/backend/filter"
	"github.com/huangsam/autoindex/schema"
)

// DecodeQuery parses a JSON query document and validates its filter.
// Empty input yields the match-all query.
func DecodeQuery(data []byte) (schema.Query, error) {
	var q schema.Query
	if len(bytes.TrimSpace(data)) == 0 {
		return q, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&q); err != nil {
		return q, fmt.Errorf("invalid query document: %w", err)
	}
	if err := filter.Validate(q.Expression); err != nil {
		return q, fmt.Errorf("invalid query filter: %w", err)
	}
	return q, nil
}
