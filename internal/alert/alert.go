// Package alert is the single channel through which user-facing failures are
// surfaced. Callers hold an explicit Dispatcher; nothing is looked up from
// ambient state.
package alert

import (
	"time"

	"github.com/google/uuid"
)

// Kind names an alert action.
type Kind string

const (
	KindOpenErrorAlert Kind = "openErrorAlert"
	KindCloseAlert     Kind = "closeAlert"
)

// Alert is the request to display one error alert.
type Alert struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Error    string    `json:"error"`
	OpenedAt time.Time `json:"opened_at"`

	// OnClose is invoked when the alert is dismissed.
	OnClose func() `json:"-"`
}

// Action is a state change request sent through a Dispatcher.
type Action struct {
	Type    Kind   `json:"type"`
	Payload *Alert `json:"payload,omitempty"`
}

// Dispatcher accepts alert actions.
type Dispatcher interface {
	Dispatch(Action)
}

// DispatchFunc adapts a function to Dispatcher.
type DispatchFunc func(Action)

func (f DispatchFunc) Dispatch(a Action) {
	f(a)
}

// OpenErrorAlert builds an openErrorAlert action with a fresh ID. message is
// expected to be already formatted for display.
func OpenErrorAlert(title, message string, onClose func()) Action {
	return Action{
		Type: KindOpenErrorAlert,
		Payload: &Alert{
			ID:      uuid.NewString(),
			Title:   title,
			Error:   message,
			OnClose: onClose,
		},
	}
}

// CloseAlert builds a closeAlert action that dismisses whatever is shown.
func CloseAlert() Action {
	return Action{Type: KindCloseAlert}
}

// CloseAlertID builds a closeAlert action that only dismisses the alert with
// the given ID.
func CloseAlertID(id string) Action {
	if id == "" {
		return CloseAlert()
	}
	return Action{Type: KindCloseAlert, Payload: &Alert{ID: id}}
}

// Reduce applies a to the current alert. Opening replaces whatever is shown;
// the replaced alert's OnClose is not called. A close carrying an ID leaves any
// other alert in place.
func Reduce(state *Alert, a Action) *Alert {
	switch a.Type {
	case KindOpenErrorAlert:
		if a.Payload == nil {
			return state
		}
		next := *a.Payload
		return &next
	case KindCloseAlert:
		if a.Payload != nil && state != nil && state.ID != a.Payload.ID {
			return state
		}
		return nil
	default:
		return state
	}
}
