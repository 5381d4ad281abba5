package jobs

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/loandesk/backoffice/internal/leads"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLeadsFirstPageWarmup pre-fetches the unfiltered first lead page.
	TaskLeadsFirstPageWarmup = "leads:first_page_warmup"
)

// LeadsWarmupPayload selects the scopes to warm as "org:user" pairs. Empty
// means the scopes the worker was configured with.
type LeadsWarmupPayload struct {
	Scopes   []string `json:"scopes,omitempty"`
	PageSize int      `json:"page_size,omitempty"`
}

// ParseScopes parses "org:user" pairs.
func ParseScopes(raw []string) ([]leads.Scope, error) {
	scopes := make([]leads.Scope, 0, len(raw))
	for _, item := range raw {
		org, user, ok := strings.Cut(strings.TrimSpace(item), ":")
		scope := leads.Scope{OrgID: org, UserID: user}
		if !ok || !scope.Valid() {
			return nil, fmt.Errorf("jobs: invalid warmup scope %q, want org:user", item)
		}
		scopes = append(scopes, scope)
	}
	return scopes, nil
}

// NewLeadsWarmupTask constructs an Asynq task.
func NewLeadsWarmupTask(payload LeadsWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadsFirstPageWarmup, data), nil
}
