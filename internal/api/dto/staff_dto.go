package dto

import (
	"github.com/campus-nfc/card-service/internal/domain"
)

// BulkTransitionRequest selects users and the transition to apply. Empty or
// missing user_ids is reported as NO_SELECTION by the workflow.
type BulkTransitionRequest struct {
	UserIDs    []string `json:"user_ids"`
	Transition string   `json:"transition" validate:"required"`
}

// TransitionFailureResponse is one failed target.
type TransitionFailureResponse struct {
	UserID  string `json:"user_id"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// TransitionChangeResponse is one changed target.
type TransitionChangeResponse struct {
	UserID string `json:"user_id"`
	From   string `json:"from"`
	To     string `json:"to"`
}

// BulkResultResponse is the aggregated outcome.
type BulkResultResponse struct {
	Transition string                      `json:"transition"`
	Requested  int                         `json:"requested"`
	Succeeded  int                         `json:"succeeded"`
	Failed     int                         `json:"failed"`
	Failures   []TransitionFailureResponse `json:"failures"`
	Changed    []TransitionChangeResponse  `json:"changed"`
	Message    string                      `json:"message"`
}

// NewBulkResultResponse maps a workflow result.
func NewBulkResultResponse(r domain.BulkResult) BulkResultResponse {
	out := BulkResultResponse{
		Transition: string(r.Transition),
		Requested:  r.Requested,
		Succeeded:  r.Succeeded,
		Failed:     r.Failed,
		Failures:   make([]TransitionFailureResponse, 0, len(r.Failures)),
		Changed:    make([]TransitionChangeResponse, 0, len(r.Changed)),
		Message:    r.Summary(),
	}
	for _, f := range r.Failures {
		out.Failures = append(out.Failures, TransitionFailureResponse{UserID: f.UserID, Reason: string(f.Reason), Message: f.Message})
	}
	for _, c := range r.Changed {
		out.Changed = append(out.Changed, TransitionChangeResponse{UserID: c.UserID, From: string(c.From), To: string(c.To)})
	}
	return out
}
