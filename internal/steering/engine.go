package steering

import (
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Rejection terminates routing with a rule-configured message and status.
type Rejection struct {
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

// RuleLog is a log action emitted during evaluation.
type RuleLog struct {
	Rule    string `json:"rule"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Decision is the outcome of one evaluation pass.
type Decision struct {
	ForcedProvider string    `json:"forced_provider,omitempty"`
	ForcedModel    string    `json:"forced_model,omitempty"`
	Body           []byte    `json:"-"` // Transformed outgoing body.
	Rejection      *Rejection `json:"rejection,omitempty"`
	Logs           []RuleLog `json:"logs,omitempty"`
	MatchedRules   []string  `json:"matched_rules,omitempty"`
}

// Forced reports whether a route action fixed the target.
func (d *Decision) Forced() bool {
	return d != nil && d.ForcedModel != ""
}

// Evaluate runs the current rule snapshot against a context document.
// Rules run in ascending priority order; effects accumulate across matches
// when continueEvaluation is set, the last route action wins, and a reject
// action is always terminal.
func (e *Engine) Evaluate(doc, body []byte) *Decision {
	decision := &Decision{Body: body}

	for _, rule := range e.Rules() {
		if !ruleMatches(doc, rule) {
			continue
		}
		decision.MatchedRules = append(decision.MatchedRules, rule.Name)

		for _, action := range rule.Actions {
			switch action.Type {
			case ActionRoute:
				decision.ForcedProvider = action.Provider
				decision.ForcedModel = action.Model
			case ActionTransform:
				decision.Body = applyTransform(decision.Body, rule.Name, action)
			case ActionInject:
				decision.Body = applyInject(decision.Body, rule.Name, action)
			case ActionReject:
				status := action.StatusCode
				if status == 0 {
					status = http.StatusForbidden
				}
				decision.Rejection = &Rejection{Message: action.Message, StatusCode: status}
				return decision
			case ActionLog:
				emitRuleLog(rule.Name, action)
				decision.Logs = append(decision.Logs, RuleLog{
					Rule:    rule.Name,
					Level:   action.Level,
					Message: action.Message,
				})
			}
		}

		if !rule.ContinueEvaluation {
			break
		}
	}
	return decision
}

// ruleMatches applies the rule's combinator over its conditions.
// A rule without conditions always matches.
func ruleMatches(doc []byte, rule Rule) bool {
	if len(rule.Conditions) == 0 {
		return true
	}
	if rule.Combinator == CombinatorOr {
		for _, cond := range rule.Conditions {
			if evalCondition(doc, cond) {
				return true
			}
		}
		return false
	}
	for _, cond := range rule.Conditions {
		if !evalCondition(doc, cond) {
			return false
		}
	}
	return true
}

// applyTransform mutates one field of the outgoing body.
func applyTransform(body []byte, ruleName string, action Action) []byte {
	switch action.Operation {
	case TransformReplace:
		next, errSet := sjson.SetBytes(body, action.Field, action.Value)
		if errSet != nil {
			log.WithError(errSet).Debugf("steering: rule %s replace %s skipped", ruleName, action.Field)
			return body
		}
		return next
	case TransformAppend, TransformPrepend:
		addition, ok := action.Value.(string)
		if !ok {
			log.Debugf("steering: rule %s %s %s needs a string value", ruleName, action.Operation, action.Field)
			return body
		}
		existing := gjson.GetBytes(body, action.Field).String()
		combined := existing + addition
		if action.Operation == TransformPrepend {
			combined = addition + existing
		}
		next, errSet := sjson.SetBytes(body, action.Field, combined)
		if errSet != nil {
			log.WithError(errSet).Debugf("steering: rule %s %s %s skipped", ruleName, action.Operation, action.Field)
			return body
		}
		return next
	case TransformDelete:
		next, errDelete := sjson.DeleteBytes(body, action.Field)
		if errDelete != nil {
			log.WithError(errDelete).Debugf("steering: rule %s delete %s skipped", ruleName, action.Field)
			return body
		}
		return next
	default:
		log.Debugf("steering: rule %s unknown transform %q", ruleName, action.Operation)
		return body
	}
}

// applyInject sets a field only when it is absent.
func applyInject(body []byte, ruleName string, action Action) []byte {
	if gjson.GetBytes(body, action.Field).Exists() {
		return body
	}
	next, errSet := sjson.SetBytes(body, action.Field, action.Value)
	if errSet != nil {
		log.WithError(errSet).Debugf("steering: rule %s inject %s skipped", ruleName, action.Field)
		return body
	}
	return next
}

// emitRuleLog writes a log action at its configured level.
func emitRuleLog(ruleName string, action Action) {
	entry := log.WithField("rule", ruleName)
	switch action.Level {
	case "debug":
		entry.Debug(action.Message)
	case "warn", "warning":
		entry.Warn(action.Message)
	case "error":
		entry.Error(action.Message)
	default:
		entry.Info(action.Message)
	}
}
