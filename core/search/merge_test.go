package search

import (
	"testing"

	"github.com/huangsam/autoindex/schema"
	"github.com/stretchr/testify/assert"
)

func TestMergeResponsesAlignsAndSorts(t *testing.T) {
	a := &schema.ResultSet{Fields: []string{"ts", "a"}, Rows: [][]string{{"30", "x"}, {"10", "y"}}}
	b := &schema.ResultSet{Fields: []string{"b", "ts"}, Rows: [][]string{{"z", "20"}}}

	got := MergeResponses([]*schema.ResultSet{a, nil, b}, "ts", nil)
	assert.Equal(t, []string{"ts", "a", "b"}, got.Fields)
	assert.Equal(t, [][]string{{"10", "y", ""}, {"20", "", "z"}, {"30", "x", ""}}, got.Rows)
}

func TestMergeResponsesTimeOrdering(t *testing.T) {
	rs := &schema.ResultSet{Fields: []string{"ts"}, Rows: [][]string{
		{"garbage"}, {"1970-01-01T00:01:40Z"}, {"50"},
	}}
	got := MergeResponses([]*schema.ResultSet{rs}, "ts", nil)
	assert.Equal(t, [][]string{{"50"}, {"1970-01-01T00:01:40Z"}, {"garbage"}}, got.Rows)
}

func TestMergeResponsesPaging(t *testing.T) {
	rs := &schema.ResultSet{Fields: []string{"ts", "v"}, Rows: [][]string{{"1", "a"}, {"2", "b"}, {"3", "c"}}}

	tests := []struct {
		name string
		req  schema.ResultRequest
		want [][]string
	}{
		{"all", schema.ResultRequest{}, [][]string{{"1", "a"}, {"2", "b"}, {"3", "c"}}},
		{"offset", schema.ResultRequest{Offset: 1}, [][]string{{"2", "b"}, {"3", "c"}}},
		{"length", schema.ResultRequest{Length: 2}, [][]string{{"1", "a"}, {"2", "b"}}},
		{"past end", schema.ResultRequest{Offset: 5}, [][]string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeResponses([]*schema.ResultSet{rs}, "ts", &tt.req)
			assert.Equal(t, tt.want, got.Rows)
		})
	}
}

func TestMergeResponsesProjection(t *testing.T) {
	rs := &schema.ResultSet{Fields: []string{"ts", "v"}, Rows: [][]string{{"1", "a"}}}
	got := MergeResponses([]*schema.ResultSet{rs}, "ts", &schema.ResultRequest{Fields: []string{"v", "missing"}})
	assert.Equal(t, []string{"v", "missing"}, got.Fields)
	assert.Equal(t, [][]string{{"a", ""}}, got.Rows)
}

func TestMergeResponsesEmpty(t *testing.T) {
	got := MergeResponses(nil, "ts", nil)
	assert.Empty(t, got.Fields)
	assert.Empty(t, got.Rows)
}
