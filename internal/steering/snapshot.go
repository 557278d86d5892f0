package steering

import (
	"sort"
	"sync/atomic"
)

// Engine evaluates the current rule snapshot. The snapshot is an immutable
// slice swapped atomically between requests; an in-flight evaluation keeps
// iterating the slice it started with.
type Engine struct {
	rules atomic.Value // stores []Rule
}

// NewEngine constructs an Engine with an empty rule set.
func NewEngine() *Engine {
	e := &Engine{}
	e.rules.Store([]Rule{})
	return e
}

// Replace swaps in a new rule set, sorted by ascending priority.
// Equal priorities keep their input order.
func (e *Engine) Replace(rules []Rule) {
	next := make([]Rule, len(rules))
	copy(next, rules)
	sort.SliceStable(next, func(i, j int) bool { return next[i].Priority < next[j].Priority })
	e.rules.Store(next)
}

// Rules returns the current snapshot.
func (e *Engine) Rules() []Rule {
	rules, ok := e.rules.Load().([]Rule)
	if !ok {
		return nil
	}
	return rules
}
