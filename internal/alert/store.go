package alert

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultHistorySize = 50

// Store holds the active alert and a short history of opened alerts.
type Store struct {
	mu          sync.Mutex
	current     *Alert
	history     []Alert
	historySize int
	subscribers []func(Action, *Alert)
	now         func() time.Time
}

// NewStore returns an empty Store. historySize <= 0 uses the default.
func NewStore(historySize int) *Store {
	if historySize <= 0 {
		historySize = defaultHistorySize
	}
	return &Store{
		historySize: historySize,
		now:         time.Now,
	}
}

// Dispatch applies a to the store and notifies subscribers with the new state.
func (s *Store) Dispatch(a Action) {
	if a.Type == KindOpenErrorAlert && a.Payload != nil {
		payload := *a.Payload
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.OpenedAt.IsZero() {
			payload.OpenedAt = s.now().UTC()
		}
		a.Payload = &payload
	}

	s.mu.Lock()
	s.current = Reduce(s.current, a)
	if a.Type == KindOpenErrorAlert && a.Payload != nil {
		s.history = append(s.history, *a.Payload)
		if len(s.history) > s.historySize {
			s.history = s.history[len(s.history)-s.historySize:]
		}
	}
	state := s.snapshotLocked()
	subs := slices.Clone(s.subscribers)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(a, state)
	}
}

// Subscribe registers fn to observe every dispatched action.
func (s *Store) Subscribe(fn func(Action, *Alert)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Current returns the active alert, if any.
func (s *Store) Current() (Alert, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Alert{}, false
	}
	return *s.current, true
}

// Recent returns up to limit opened alerts, newest first.
func (s *Store) Recent(limit int) []Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	out := make([]Alert, 0, limit)
	for i := len(s.history) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.history[i])
	}
	return out
}

// Close dismisses the active alert through its OnClose callback. It reports
// false when nothing was open. An alert opened while the callback runs is
// left in place.
func (s *Store) Close() bool {
	s.mu.Lock()
	current := s.snapshotLocked()
	s.mu.Unlock()

	if current == nil {
		return false
	}
	if current.OnClose != nil {
		current.OnClose()
		return true
	}
	s.Dispatch(CloseAlertID(current.ID))
	return true
}

func (s *Store) snapshotLocked() *Alert {
	if s.current == nil {
		return nil
	}
	cp := *s.current
	return &cp
}
