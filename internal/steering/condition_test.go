package steering

import "testing"

var testDoc = []byte(`{
	"request": {
		"body": {"model": "gpt-4", "temperature": 0.7, "stream": true},
		"task_type": "code-generation"
	},
	"user": {"id": "u-42", "team_id": "t-7"},
	"organization": {"id": "acme"},
	"context": {"request_id": "r-1", "hour": 14}
}`)

func TestOperatorTable(t *testing.T) {
	cases := []struct {
		name    string
		cond    Condition
		matched bool
	}{
		{"equals string", Condition{Field: "request.body.model", Operator: OpEquals, Value: "gpt-4"}, true},
		{"equals mismatch", Condition{Field: "request.body.model", Operator: OpEquals, Value: "gpt-3.5"}, false},
		{"equals int against float", Condition{Field: "context.hour", Operator: OpEquals, Value: 14}, true},
		{"not_equals", Condition{Field: "request.body.model", Operator: OpNotEquals, Value: "claude"}, true},
		{"contains", Condition{Field: "request.body.model", Operator: OpContains, Value: "gpt"}, true},
		{"contains non-string operand", Condition{Field: "request.body.model", Operator: OpContains, Value: 4}, false},
		{"contains on bool field", Condition{Field: "request.body.stream", Operator: OpContains, Value: "tr"}, false},
		{"not_contains", Condition{Field: "request.body.model", Operator: OpNotContains, Value: "claude"}, true},
		{"regex", Condition{Field: "user.id", Operator: OpRegex, Value: "^u-\\d+$"}, true},
		{"regex mismatch", Condition{Field: "user.id", Operator: OpRegex, Value: "^admin-"}, false},
		{"gt", Condition{Field: "context.hour", Operator: OpGt, Value: 9}, true},
		{"gt non-numeric field", Condition{Field: "request.body.model", Operator: OpGt, Value: 1}, false},
		{"gt non-numeric operand", Condition{Field: "context.hour", Operator: OpGt, Value: "nine"}, false},
		{"gte boundary", Condition{Field: "context.hour", Operator: OpGte, Value: 14}, true},
		{"lt", Condition{Field: "request.body.temperature", Operator: OpLt, Value: 1}, true},
		{"lte boundary", Condition{Field: "context.hour", Operator: OpLte, Value: 14}, true},
		{"in", Condition{Field: "organization.id", Operator: OpIn, Value: []any{"acme", "globex"}}, true},
		{"in miss", Condition{Field: "organization.id", Operator: OpIn, Value: []any{"globex"}}, false},
		{"not_in", Condition{Field: "organization.id", Operator: OpNotIn, Value: []any{"globex"}}, true},
		{"exists", Condition{Field: "request.body.model", Operator: OpExists}, true},
		{"exists miss", Condition{Field: "request.body.missing", Operator: OpExists}, false},
		{"not_exists", Condition{Field: "request.body.missing", Operator: OpNotExists}, true},
		{"unknown operator", Condition{Field: "user.id", Operator: "between", Value: "x"}, false},
	}

	for _, tc := range cases {
		if got := evalCondition(testDoc, tc.cond); got != tc.matched {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.matched, got)
		}
	}
}

func TestAbsentFieldVacuousNegatives(t *testing.T) {
	cases := []struct {
		operator string
		value    any
		matched  bool
	}{
		{OpNotEquals, "anything", true},
		{OpNotContains, "anything", true},
		{OpNotIn, []any{"a"}, true},
		{OpEquals, "anything", false},
		{OpContains, "anything", false},
		{OpIn, []any{"a"}, false},
		{OpGt, 1, false},
		{OpRegex, ".*", false},
	}
	for _, tc := range cases {
		cond := Condition{Field: "request.body.absent", Operator: tc.operator, Value: tc.value}
		if got := evalCondition(testDoc, cond); got != tc.matched {
			t.Fatalf("absent field %s: expected %v, got %v", tc.operator, tc.matched, got)
		}
	}
}

func TestBuildDocumentNamespaces(t *testing.T) {
	doc := BuildDocument(ContextInput{
		Body:      []byte(`{"model":"gpt-4"}`),
		TaskType:  "summarization",
		UserID:    "u-1",
		TeamID:    "t-1",
		OrgID:     "acme",
		RequestID: "r-9",
	})

	checks := []Condition{
		{Field: "request.body.model", Operator: OpEquals, Value: "gpt-4"},
		{Field: "request.task_type", Operator: OpEquals, Value: "summarization"},
		{Field: "user.id", Operator: OpEquals, Value: "u-1"},
		{Field: "organization.id", Operator: OpEquals, Value: "acme"},
		{Field: "context.request_id", Operator: OpEquals, Value: "r-9"},
		{Field: "context.hour", Operator: OpExists},
	}
	for _, cond := range checks {
		if !evalCondition(doc, cond) {
			t.Fatalf("condition on %s did not match document", cond.Field)
		}
	}
}
