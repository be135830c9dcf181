package transition

import (
	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/pdfdesk/pkg/domain/model"
	"github.com/m-mizutani/pdfdesk/pkg/domain/types"
)

var RedeemedUpdates = redeemedUpdates

// Stored returns the transition kept for token
func (m *Memory) Stored(token types.TransitionToken) (model.Transition, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[token]
	if !ok {
		return model.Transition{}, false
	}
	return e.transition, true
}

// UpdatedPaths lists the field paths of updates
func UpdatedPaths(updates []firestore.Update) map[string]any {
	out := make(map[string]any, len(updates))
	for _, u := range updates {
		out[u.Path] = u.Value
	}
	return out
}
