package alert

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduce(t *testing.T) {
	open := OpenErrorAlert("Error", "boom", nil)

	state := Reduce(nil, open)
	require.NotNil(t, state)
	assert.Equal(t, "boom", state.Error)

	assert.Nil(t, Reduce(state, CloseAlert()))
	assert.Same(t, state, Reduce(state, CloseAlertID("someone-else")))
	assert.Nil(t, Reduce(state, CloseAlertID(state.ID)))
	assert.Same(t, state, Reduce(state, Action{Type: "unknown"}))
	assert.Same(t, state, Reduce(state, Action{Type: KindOpenErrorAlert}))
}

func TestStore_OpenAssignsIDAndTime(t *testing.T) {
	s := NewStore(0)
	s.Dispatch(OpenErrorAlert("Failed", "boom", nil))

	cur, ok := s.Current()
	require.True(t, ok)
	assert.NotEmpty(t, cur.ID)
	assert.False(t, cur.OpenedAt.IsZero())
	assert.Equal(t, "Failed", cur.Title)
}

func TestStore_SecondOpenReplacesWithoutClosingFirst(t *testing.T) {
	s := NewStore(0)
	firstClosed := false
	s.Dispatch(OpenErrorAlert("first", "a", func() { firstClosed = true }))
	s.Dispatch(OpenErrorAlert("second", "b", nil))

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "second", cur.Title)
	assert.False(t, firstClosed)

	recent := s.Recent(10)
	require.Len(t, recent, 2)
	assert.Equal(t, "second", recent[0].Title)
	assert.Equal(t, "first", recent[1].Title)
}

func TestStore_CloseRunsOnClose(t *testing.T) {
	s := NewStore(0)
	s.Dispatch(OpenErrorAlert("t", "e", func() { s.Dispatch(CloseAlert()) }))

	assert.True(t, s.Close())
	_, ok := s.Current()
	assert.False(t, ok)
	assert.False(t, s.Close())
}

func TestStore_CloseWithoutCallback(t *testing.T) {
	s := NewStore(0)
	s.Dispatch(OpenErrorAlert("t", "e", nil))

	assert.True(t, s.Close())
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestStore_HistoryIsBounded(t *testing.T) {
	s := NewStore(3)
	for i := 0; i < 5; i++ {
		s.Dispatch(OpenErrorAlert("t", string(rune('a'+i)), nil))
	}
	recent := s.Recent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, "e", recent[0].Error)
	assert.Equal(t, "c", recent[2].Error)
}

func TestStore_SubscribersSeeEveryAction(t *testing.T) {
	s := NewStore(0)
	var kinds []Kind
	s.Subscribe(func(a Action, _ *Alert) { kinds = append(kinds, a.Type) })

	s.Dispatch(OpenErrorAlert("t", "e", nil))
	s.Dispatch(CloseAlert())

	assert.Equal(t, []Kind{KindOpenErrorAlert, KindCloseAlert}, kinds)
}

func TestStore_SubscribeDuringDispatchSeesOnlyLaterActions(t *testing.T) {
	s := NewStore(0)
	var late []Kind
	s.Subscribe(func(a Action, _ *Alert) {
		if a.Type == KindOpenErrorAlert {
			s.Subscribe(func(a Action, _ *Alert) { late = append(late, a.Type) })
		}
	})

	s.Dispatch(OpenErrorAlert("t", "e", nil))
	assert.Empty(t, late)

	s.Dispatch(CloseAlert())
	assert.Equal(t, []Kind{KindCloseAlert}, late)
}

func TestStore_CloseByIDKeepsNewerAlert(t *testing.T) {
	s := NewStore(0)
	first := OpenErrorAlert("first", "a", nil)
	s.Dispatch(first)
	s.Dispatch(OpenErrorAlert("second", "b", nil))

	s.Dispatch(CloseAlertID(first.Payload.ID))
	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "second", cur.Title)

	s.Dispatch(CloseAlertID(cur.ID))
	_, ok = s.Current()
	assert.False(t, ok)
}

func TestStore_CloseLeavesAlertOpenedByCallback(t *testing.T) {
	s := NewStore(0)
	var id string
	open := OpenErrorAlert("first", "a", func() {
		s.Dispatch(OpenErrorAlert("second", "b", nil))
		s.Dispatch(CloseAlertID(id))
	})
	id = open.Payload.ID
	s.Dispatch(open)

	assert.True(t, s.Close())
	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "second", cur.Title)
}

func TestStore_ConcurrentDispatch(t *testing.T) {
	s := NewStore(10)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Dispatch(OpenErrorAlert("t", "e", nil))
		}()
	}
	wg.Wait()

	_, ok := s.Current()
	assert.True(t, ok)
	assert.Len(t, s.Recent(0), 10)
}
