package schema

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Expression is a node of a query filter tree.
// A node with an Op is an operator over Children; otherwise it is a term.
// The zero Expression matches everything.
type Expression struct {
	Op        Op           `json:"op,omitempty"`
	Children  []Expression `json:"children,omitempty"`
	Field     string       `json:"field,omitempty"`
	Condition Condition    `json:"condition,omitempty"`
	Value     string       `json:"value,omitempty"`
	Disabled  bool         `json:"disabled,omitempty"`
}

// Term builds a single field comparison.
func Term(field string, cond Condition, value string) Expression {
	return Expression{Field: field, Condition: cond, Value: value}
}

// And joins children with AND.
func And(children ...Expression) Expression {
	return Expression{Op: OpAnd, Children: children}
}

// Or joins children with OR.
func Or(children ...Expression) Expression {
	return Expression{Op: OpOr, Children: children}
}

// Not negates the conjunction of children.
func Not(children ...Expression) Expression {
	return Expression{Op: OpNot, Children: children}
}

// BetweenTerm builds the time-bound clause for a window on the given field.
func BetweenTerm(field string, w Window) Expression {
	return Term(field, CondBetween, fmt.Sprintf("%d,%d", w.From, w.To))
}

// IsTerm reports whether the node is a leaf comparison.
func (e Expression) IsTerm() bool {
	return e.Op == ""
}

// IsEmpty reports whether the node is the zero match-all expression.
func (e Expression) IsEmpty() bool {
	return e.Op == "" && e.Field == "" && e.Condition == "" && e.Value == "" && len(e.Children) == 0
}

// Clone returns a deep copy of the tree.
func (e Expression) Clone() Expression {
	clone := e
	if e.Children != nil {
		clone.Children = make([]Expression, len(e.Children))
		for i, c := range e.Children {
			clone.Children[i] = c.Clone()
		}
	}
	return clone
}

// String renders the tree in a compact infix form.
func (e Expression) String() string {
	if e.IsEmpty() {
		return "*"
	}
	prefix := ""
	if e.Disabled {
		prefix = "#"
	}
	if e.IsTerm() {
		return fmt.Sprintf("%s%s %s %s", prefix, e.Field, e.Condition, e.Value)
	}
	parts := make([]string, 0, len(e.Children))
	for _, c := range e.Children {
		parts = append(parts, c.String())
	}
	if e.Op == OpNot {
		return fmt.Sprintf("%sNOT (%s)", prefix, strings.Join(parts, " AND "))
	}
	return fmt.Sprintf("%s(%s)", prefix, strings.Join(parts, fmt.Sprintf(" %s ", e.Op)))
}

// Param is a named query parameter passed through to backends.
type Param struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ResultRequest describes the shape and page of results a caller wants.
type ResultRequest struct {
	ComponentID string   `json:"component_id"`
	Fields      []string `json:"fields,omitempty"`
	Offset      int      `json:"offset,omitempty"`
	Length      int      `json:"length,omitempty"` // 0 means unlimited
}

// Query is a search against one data source.
type Query struct {
	Key            string          `json:"key"`
	DataSource     BackendRef      `json:"data_source"`
	Expression     Expression      `json:"expression"`
	Params         []Param         `json:"params,omitempty"`
	ResultRequests []ResultRequest `json:"result_requests,omitempty"`
	Locale         string          `json:"locale,omitempty"`
	Incremental    bool            `json:"incremental,omitempty"`
	Timeout        time.Duration   `json:"timeout,omitempty"`
}

// Clone returns a deep copy of the query.
func (q Query) Clone() Query {
	clone := q
	clone.Expression = q.Expression.Clone()
	if q.Params != nil {
		clone.Params = make([]Param, len(q.Params))
		copy(clone.Params, q.Params)
	}
	if q.ResultRequests != nil {
		clone.ResultRequests = make([]ResultRequest, len(q.ResultRequests))
		for i, rr := range q.ResultRequests {
			clone.ResultRequests[i] = rr
			if rr.Fields != nil {
				clone.ResultRequests[i].Fields = append([]string(nil), rr.Fields...)
			}
		}
	}
	return clone
}

// SplitQuery maps each backend to the sub-queries bound to its windows.
type SplitQuery map[BackendRef]map[Window]Query

// SubQuery is one flattened entry of a SplitQuery.
type SubQuery struct {
	Backend BackendRef `json:"backend"`
	Window  Window     `json:"window"`
	Query   Query      `json:"query"`
}

// Len returns the number of sub-queries across all backends.
func (s SplitQuery) Len() int {
	n := 0
	for _, byWindow := range s {
		n += len(byWindow)
	}
	return n
}

// Flatten lists the sub-queries ordered by window start, then backend.
func (s SplitQuery) Flatten() []SubQuery {
	out := make([]SubQuery, 0, s.Len())
	for ref, byWindow := range s {
		for w, q := range byWindow {
			out = append(out, SubQuery{Backend: ref, Window: w, Query: q})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Window.From != out[j].Window.From {
			return out[i].Window.From < out[j].Window.From
		}
		return out[i].Backend.String() < out[j].Backend.String()
	})
	return out
}
