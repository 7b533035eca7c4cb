package domain

import "time"

// HistoryEntry is one immutable audit record of a value mutation. OldValue
// is nil when the value was created, NewValue is nil when it was deleted.
type HistoryEntry struct {
	Seq            int64     `json:"seq"`
	Key            string    `json:"key"`
	Scope          Scope     `json:"scope"`
	OldValue       *string   `json:"old_value"`
	NewValue       *string   `json:"new_value"`
	ChangedBy      string    `json:"changed_by"`
	ChangedAt      time.Time `json:"changed_at"`
	Reason         string    `json:"reason,omitempty"`
	SourceDocument string    `json:"source_document,omitempty"`
	Version        int       `json:"version"`
}

// Action names the kind of mutation the entry records.
func (h HistoryEntry) Action() string {
	switch {
	case h.OldValue == nil && h.NewValue != nil:
		return "created"
	case h.NewValue == nil:
		return "deleted"
	default:
		return "updated"
	}
}
