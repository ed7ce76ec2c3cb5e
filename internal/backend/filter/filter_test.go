package filter

import (
	"testing"

	"github.com/huangsam/autoindex/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(kv map[string]string) Getter {
	return func(f string) (string, bool) {
		v, ok := kv[f]
		return v, ok
	}
}

func TestMatch(t *testing.T) {
	r := row(map[string]string{"user": "bob", "ts": "1700", "msg": "disk full", "level": "3", "when": "2024-01-01T00:00:00Z"})

	tests := []struct {
		name string
		expr schema.Expression
		want bool
	}{
		{"empty matches all", schema.Expression{}, true},
		{"equals", schema.Term("user", schema.CondEquals, "bob"), true},
		{"equals miss", schema.Term("user", schema.CondEquals, "alice"), false},
		{"missing field", schema.Term("host", schema.CondEquals, "bob"), false},
		{"contains", schema.Term("msg", schema.CondContains, "full"), true},
		{"in", schema.Term("user", schema.CondIn, "alice, bob"), true},
		{"in miss", schema.Term("user", schema.CondIn, "alice,carol"), false},
		{"between lower inclusive", schema.Term("ts", schema.CondBetween, "1700,2000"), true},
		{"between upper exclusive", schema.Term("ts", schema.CondBetween, "1000,1700"), false},
		{"between rfc3339", schema.Term("when", schema.CondBetween, "1704067200,1704067201"), true},
		{"greater numeric", schema.Term("level", schema.CondGreaterThan, "10"), false},
		{"greater or equal", schema.Term("level", schema.CondGreaterThanOrEqualTo, "3"), true},
		{"less", schema.Term("level", schema.CondLessThan, "10"), true},
		{"less or equal", schema.Term("level", schema.CondLessThanOrEqualTo, "2"), false},
		{"less than mixed types", schema.Term("user", schema.CondLessThan, "10"), false},
		{"lexical compare", schema.Term("user", schema.CondGreaterThan, "alice"), true},
		{"and", schema.And(schema.Term("user", schema.CondEquals, "bob"), schema.Term("ts", schema.CondBetween, "1000,2000")), true},
		{"or", schema.Or(schema.Term("user", schema.CondEquals, "alice"), schema.Term("user", schema.CondEquals, "bob")), true},
		{"not", schema.Not(schema.Term("user", schema.CondEquals, "bob")), false},
		{"disabled child ignored", schema.And(
			schema.Term("user", schema.CondEquals, "bob"),
			schema.Expression{Field: "user", Condition: schema.CondEquals, Value: "alice", Disabled: true},
		), true},
		{"or of disabled only", schema.Or(schema.Expression{Field: "x", Condition: schema.CondEquals, Value: "y", Disabled: true}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.expr, r))
		})
	}
}

func TestMatchBetweenLargeEpochs(t *testing.T) {
	// Above 2^53 neighbouring integers share one float64.
	r := row(map[string]string{"ts": "9007199254740992"})

	assert.False(t, Match(schema.Term("ts", schema.CondBetween, "9007199254740993,9007199254740995"), r))
	assert.True(t, Match(schema.Term("ts", schema.CondBetween, "9007199254740992,9007199254740993"), r))
	assert.False(t, Match(schema.Term("ts", schema.CondBetween, "9007199254740991,9007199254740992"), r))
	assert.True(t, Match(schema.Term("ts", schema.CondBetween, "1,2"), row(map[string]string{"ts": "1.5"})))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(schema.Expression{}))
	assert.NoError(t, Validate(schema.And(schema.BetweenTerm("ts", schema.Window{From: 1, To: 2}))))
	assert.Error(t, Validate(schema.Term("ts", "LIKE", "x")))
	assert.Error(t, Validate(schema.Term("ts", schema.CondBetween, "12")))
	assert.Error(t, Validate(schema.Expression{Op: "XOR", Children: []schema.Expression{schema.Term("a", schema.CondEquals, "b")}}))
}

func TestParseRange(t *testing.T) {
	from, to, err := ParseRange("-10, 20")
	require.NoError(t, err)
	assert.Equal(t, int64(-10), from)
	assert.Equal(t, int64(20), to)

	_, _, err = ParseRange("x,1")
	assert.Error(t, err)
	_, _, err = ParseRange("1,y")
	assert.Error(t, err)
}

func TestBuilderUnionsFields(t *testing.T) {
	b := NewBuilder()
	b.Add([]string{"ts", "user"}, []string{"1", "bob"})
	b.Add([]string{"user", "ts", "host"}, []string{"alice", "2", "h1"})

	rs := b.Result()
	assert.Equal(t, []string{"ts", "user", "host"}, rs.Fields)
	assert.Equal(t, [][]string{{"1", "bob", ""}, {"2", "alice", "h1"}}, rs.Rows)

	empty := NewBuilder().Result()
	assert.Empty(t, empty.Fields)
	assert.Equal(t, 0, empty.Len())
}
