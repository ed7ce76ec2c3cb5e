package search

import (
	"testing"

	"github.com/huangsam/autoindex/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeQuery(t *testing.T) {
	q, err := DecodeQuery([]byte(`{
		"key": "q1",
		"expression": {"op": "AND", "children": [{"field": "host", "condition": "EQUALS", "value": "a"}]},
		"result_requests": [{"component_id": "table", "fields": ["ts"], "length": 10}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, "q1", q.Key)
	assert.Equal(t, schema.And(schema.Term("host", schema.CondEquals, "a")), q.Expression)
	assert.Equal(t, 10, q.ResultRequests[0].Length)
}

func TestDecodeQueryEmpty(t *testing.T) {
	q, err := DecodeQuery([]byte("  \n"))
	require.NoError(t, err)
	assert.True(t, q.Expression.IsEmpty())
}

func TestDecodeQueryErrors(t *testing.T) {
	tests := map[string]string{
		"syntax":        `{"key":`,
		"unknown field": `{"nope": 1}`,
		"bad condition": `{"expression": {"field": "a", "condition": "LIKE", "value": "x"}}`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeQuery([]byte(doc))
			assert.Error(t, err)
		})
	}
}
