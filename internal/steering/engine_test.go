package steering

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/router-for-me/RoutingEngine/internal/models"
	"github.com/tidwall/gjson"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func engineWith(rules ...Rule) *Engine {
	engine := NewEngine()
	engine.Replace(rules)
	return engine
}

func matchAll() []Condition { return nil }

func TestPriorityOrderFirstRouteWinsWhenTerminal(t *testing.T) {
	engine := engineWith(
		Rule{Name: "low", Priority: 20, Conditions: matchAll(), Actions: []Action{{Type: ActionRoute, Provider: "anthropic", Model: "claude-3"}}},
		Rule{Name: "high", Priority: 10, Conditions: matchAll(), Actions: []Action{{Type: ActionRoute, Provider: "openai", Model: "gpt-4"}}},
	)

	decision := engine.Evaluate([]byte(`{}`), []byte(`{}`))
	if decision.ForcedModel != "gpt-4" {
		t.Fatalf("expected priority-10 route to win, got %s", decision.ForcedModel)
	}
	if len(decision.MatchedRules) != 1 {
		t.Fatalf("expected evaluation to stop after terminal match, matched %v", decision.MatchedRules)
	}
}

func TestContinueEvaluationLaterRouteOverrides(t *testing.T) {
	engine := engineWith(
		Rule{Name: "high", Priority: 10, ContinueEvaluation: true, Actions: []Action{{Type: ActionRoute, Provider: "openai", Model: "gpt-4"}}},
		Rule{Name: "low", Priority: 20, Actions: []Action{{Type: ActionRoute, Provider: "anthropic", Model: "claude-3"}}},
	)

	decision := engine.Evaluate([]byte(`{}`), []byte(`{}`))
	if decision.ForcedModel != "claude-3" {
		t.Fatalf("expected last matching route to win, got %s", decision.ForcedModel)
	}
}

func TestRejectIsTerminalDespiteContinueEvaluation(t *testing.T) {
	engine := engineWith(
		Rule{Name: "block", Priority: 5, ContinueEvaluation: true, Actions: []Action{
			{Type: ActionReject, Message: "blocked by policy", StatusCode: 451},
		}},
		Rule{Name: "later", Priority: 10, Actions: []Action{{Type: ActionRoute, Model: "gpt-4"}}},
	)

	decision := engine.Evaluate([]byte(`{}`), []byte(`{}`))
	if decision.Rejection == nil {
		t.Fatalf("expected rejection")
	}
	if decision.Rejection.StatusCode != 451 || decision.Rejection.Message != "blocked by policy" {
		t.Fatalf("unexpected rejection %+v", decision.Rejection)
	}
	if decision.ForcedModel != "" {
		t.Fatalf("rule after reject still executed")
	}
	if len(decision.MatchedRules) != 1 {
		t.Fatalf("expected no evaluation past reject, matched %v", decision.MatchedRules)
	}
}

func TestRejectDefaultsStatusCode(t *testing.T) {
	engine := engineWith(
		Rule{Name: "block", Priority: 1, Actions: []Action{{Type: ActionReject, Message: "no"}}},
	)
	decision := engine.Evaluate([]byte(`{}`), []byte(`{}`))
	if decision.Rejection == nil || decision.Rejection.StatusCode != 403 {
		t.Fatalf("expected default 403, got %+v", decision.Rejection)
	}
}

func TestTransformEffectsAccumulate(t *testing.T) {
	engine := engineWith(
		Rule{Name: "first", Priority: 10, ContinueEvaluation: true, Actions: []Action{
			{Type: ActionTransform, Field: "system_prompt", Operation: TransformReplace, Value: "Be brief."},
		}},
		Rule{Name: "second", Priority: 20, Actions: []Action{
			{Type: ActionTransform, Field: "system_prompt", Operation: TransformAppend, Value: " Answer in English."},
			{Type: ActionTransform, Field: "temperature", Operation: TransformDelete},
		}},
	)

	body := []byte(`{"model":"gpt-4","temperature":0.9}`)
	decision := engine.Evaluate([]byte(`{}`), body)

	if got := gjson.GetBytes(decision.Body, "system_prompt").String(); got != "Be brief. Answer in English." {
		t.Fatalf("transforms did not accumulate: %q", got)
	}
	if gjson.GetBytes(decision.Body, "temperature").Exists() {
		t.Fatalf("delete transform did not remove field")
	}
	if got := gjson.GetBytes(decision.Body, "model").String(); got != "gpt-4" {
		t.Fatalf("untouched field changed: %q", got)
	}
}

func TestPrependTransform(t *testing.T) {
	engine := engineWith(
		Rule{Name: "prefix", Priority: 1, Actions: []Action{
			{Type: ActionTransform, Field: "prompt", Operation: TransformPrepend, Value: "Context: "},
		}},
	)
	decision := engine.Evaluate([]byte(`{}`), []byte(`{"prompt":"hello"}`))
	if got := gjson.GetBytes(decision.Body, "prompt").String(); got != "Context: hello" {
		t.Fatalf("prepend failed: %q", got)
	}
}

func TestInjectOnlyWhenAbsent(t *testing.T) {
	engine := engineWith(
		Rule{Name: "inject", Priority: 1, Actions: []Action{
			{Type: ActionInject, Field: "system_prompt", Value: "default prompt"},
		}},
	)

	withExisting := engine.Evaluate([]byte(`{}`), []byte(`{"system_prompt":"custom"}`))
	if got := gjson.GetBytes(withExisting.Body, "system_prompt").String(); got != "custom" {
		t.Fatalf("inject overwrote existing field: %q", got)
	}

	withoutExisting := engine.Evaluate([]byte(`{}`), []byte(`{"model":"gpt-4"}`))
	if got := gjson.GetBytes(withoutExisting.Body, "system_prompt").String(); got != "default prompt" {
		t.Fatalf("inject did not add absent field: %q", got)
	}
}

func TestOrCombinator(t *testing.T) {
	rule := Rule{
		Name:       "either",
		Priority:   1,
		Combinator: CombinatorOr,
		Conditions: []Condition{
			{Field: "user.id", Operator: OpEquals, Value: "someone-else"},
			{Field: "organization.id", Operator: OpEquals, Value: "acme"},
		},
		Actions: []Action{{Type: ActionRoute, Model: "gpt-4"}},
	}
	engine := engineWith(rule)

	decision := engine.Evaluate(testDoc, []byte(`{}`))
	if !decision.Forced() {
		t.Fatalf("or combinator did not match with one true condition")
	}
}

func TestAndCombinatorRequiresAll(t *testing.T) {
	rule := Rule{
		Name:     "both",
		Priority: 1,
		Conditions: []Condition{
			{Field: "organization.id", Operator: OpEquals, Value: "acme"},
			{Field: "user.id", Operator: OpEquals, Value: "someone-else"},
		},
		Actions: []Action{{Type: ActionRoute, Model: "gpt-4"}},
	}
	engine := engineWith(rule)

	if decision := engine.Evaluate(testDoc, []byte(`{}`)); decision.Forced() {
		t.Fatalf("and combinator matched with a false condition")
	}
}

func TestLogActionDoesNotAffectRouting(t *testing.T) {
	engine := engineWith(
		Rule{Name: "observer", Priority: 1, ContinueEvaluation: true, Actions: []Action{
			{Type: ActionLog, Level: "info", Message: "saw request"},
		}},
	)

	decision := engine.Evaluate([]byte(`{}`), []byte(`{"model":"gpt-4"}`))
	if decision.Forced() || decision.Rejection != nil {
		t.Fatalf("log action altered routing: %+v", decision)
	}
	if len(decision.Logs) != 1 || decision.Logs[0].Message != "saw request" {
		t.Fatalf("log not captured: %+v", decision.Logs)
	}
}

func TestLoadRulesSkipsMalformedAndDisabled(t *testing.T) {
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := conn.AutoMigrate(&models.SteeringRule{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	rows := []models.SteeringRule{
		{Name: "good", Priority: 10, Combinator: "and", Conditions: datatypes.JSON(`[]`), Actions: datatypes.JSON(`[{"type":"log","message":"hi"}]`), IsEnabled: true},
		{Name: "disabled", Priority: 5, Combinator: "and", Conditions: datatypes.JSON(`[]`), Actions: datatypes.JSON(`[]`), IsEnabled: false},
		{Name: "broken", Priority: 1, Combinator: "and", Conditions: datatypes.JSON(`{"not":"a list"}`), Actions: datatypes.JSON(`[]`), IsEnabled: true},
	}
	for i := range rows {
		if errCreate := conn.Create(&rows[i]).Error; errCreate != nil {
			t.Fatalf("create rule: %v", errCreate)
		}
	}

	rules, errLoad := LoadRules(context.Background(), conn)
	if errLoad != nil {
		t.Fatalf("load rules: %v", errLoad)
	}
	if len(rules) != 1 || rules[0].Name != "good" {
		t.Fatalf("expected only the good rule, got %+v", rules)
	}
}
