// Package audittest provides an in-memory audit.AuditService for tests.
package audittest

import (
	"context"
	"sync"

	common_models "go-clinic/internal/common/models"
)

type Entry struct {
	Scope    common_models.Scope
	Action   common_models.AuditAction
	Module   string
	RecordID string
	Changes  map[string]common_models.Change
}

type Recorder struct {
	mu      sync.Mutex
	Entries []Entry
}

func (r *Recorder) LogChange(_ context.Context, scope common_models.Scope, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Entries = append(r.Entries, Entry{Scope: scope, Action: action, Module: module, RecordID: recordID, Changes: changes})
	return nil
}

func (r *Recorder) ListLogs(_ context.Context, _ common_models.Scope, _ map[string]string, page common_models.Page) (*common_models.PageResult[common_models.AuditLog], error) {
	return &common_models.PageResult[common_models.AuditLog]{Page: page.Page, Limit: page.Limit}, nil
}

// Actions returns the recorded actions in order.
func (r *Recorder) Actions() []common_models.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]common_models.AuditAction, len(r.Entries))
	for i, e := range r.Entries {
		out[i] = e.Action
	}
	return out
}
