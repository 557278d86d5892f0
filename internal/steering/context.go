package steering

import (
	"encoding/json"
	"strings"
	"time"
)

// ContextInput carries the raw material for one request's context document.
type ContextInput struct {
	Body      []byte // Outgoing request body JSON.
	TaskType  string
	UserID    string
	TeamID    string
	OrgID     string
	RequestID string
}

// BuildDocument assembles the JSON document conditions are resolved against.
// The dotted namespaces are request.*, user.*, organization.*, and context.*;
// body fields live under request.body.
func BuildDocument(in ContextInput) []byte {
	var body any
	if len(in.Body) > 0 {
		if errUnmarshal := json.Unmarshal(in.Body, &body); errUnmarshal != nil {
			body = nil
		}
	}

	now := time.Now()
	doc := map[string]any{
		"request": map[string]any{
			"body":      body,
			"task_type": in.TaskType,
		},
		"user": map[string]any{
			"id":      in.UserID,
			"team_id": in.TeamID,
		},
		"organization": map[string]any{
			"id": in.OrgID,
		},
		"context": map[string]any{
			"request_id": in.RequestID,
			"hour":       now.Hour(),
			"weekday":    strings.ToLower(now.Weekday().String()),
		},
	}

	encoded, errMarshal := json.Marshal(doc)
	if errMarshal != nil {
		return []byte("{}")
	}
	return encoded
}
