package dto

import (
	"time"

	"github.com/campus-nfc/card-service/internal/domain"
)

// HistoryEntryResponse is one audit trail entry.
type HistoryEntryResponse struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id"`
	ChangedByID   *string        `json:"changed_by_id"`
	ChangedByRole string         `json:"changed_by_role,omitempty"`
	ChangeType    string         `json:"change_type"`
	Event         string         `json:"event"`
	OldValue      map[string]any `json:"old_value,omitempty"`
	NewValue      map[string]any `json:"new_value,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// NewHistoryList maps audit entries.
func NewHistoryList(entries []domain.AccountHistory) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryEntryResponse{
			ID:            e.ID,
			UserID:        e.UserID,
			ChangedByID:   e.ChangedByID,
			ChangedByRole: string(e.ChangedByRole),
			ChangeType:    string(e.ChangeType),
			Event:         e.EventType,
			OldValue:      e.OldValue,
			NewValue:      e.NewValue,
			CreatedAt:     e.CreatedAt,
		})
	}
	return out
}
