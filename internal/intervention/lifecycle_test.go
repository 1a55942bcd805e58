package intervention

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/worktracker-go/internal/errors"
	"github.com/tphakala/worktracker-go/internal/loop"
)

type memStore map[int64][]Item

func (s memStore) Interventions(id int64) []Item { return slices.Clone(s[id]) }
func (s memStore) SetInterventions(id int64, items []Item) {
	s[id] = slices.Clone(items)
}

type fakeBackend struct {
	list        []Item
	listErr     error
	created     Item
	createErr   error
	transErr    error
	listCalls   int
	createCalls int
	transCalls  []TransitionRequest
	transURLs   []string
}

func (b *fakeBackend) ListInterventions(context.Context, int64) ([]Item, error) {
	b.listCalls++
	return slices.Clone(b.list), b.listErr
}

func (b *fakeBackend) CreateIntervention(_ context.Context, _ int64, _ CreateFields) (Item, error) {
	b.createCalls++
	return b.created, b.createErr
}

func (b *fakeBackend) TransitionIntervention(_ context.Context, url string, req TransitionRequest) error {
	b.transCalls = append(b.transCalls, req)
	b.transURLs = append(b.transURLs, url)
	return b.transErr
}

type countingObserver struct{ results []string }

func (o *countingObserver) TransitionResult(action, result string) {
	o.results = append(o.results, action+":"+result)
}

func newTestLifecycle(t *testing.T, b *fakeBackend, store memStore, opts ...Option) (*Lifecycle, *loop.Manual) {
	t.Helper()
	exec := &loop.Manual{}
	return NewLifecycle(b, store, exec, nil, opts...), exec
}

func proposed(id int64, allowed ActionSet) Item {
	return Item{ID: id, Status: StatusProposed, Allowed: allowed, AllowedKnown: true, TransitionURL: "/t/"}
}

func pending(id int64, allowed ActionSet) Item {
	return Item{ID: id, Status: StatusDonePendingOwner, Allowed: allowed, AllowedKnown: true, TransitionURL: "/t/"}
}

func TestListReplacesCachedList(t *testing.T) {
	b := &fakeBackend{list: []Item{proposed(1, CanMarkDone), {ID: 2, Status: StatusCompleted}}}
	store := memStore{5: {proposed(99, 0)}}
	lc, exec := newTestLifecycle(t, b, store)

	var got []Item
	lc.List(5, func(items []Item, err error) {
		require.NoError(t, err)
		got = items
	})
	exec.RunAll()

	assert.Len(t, got, 2)
	assert.Equal(t, []int64{1, 2}, ids(store[5]))
}

func TestListFailureLeavesCache(t *testing.T) {
	b := &fakeBackend{listErr: errors.NewStd("boom")}
	store := memStore{5: {proposed(99, 0)}}
	lc, exec := newTestLifecycle(t, b, store)

	var gotErr error
	lc.List(5, func(_ []Item, err error) { gotErr = err })
	exec.RunAll()

	assert.Error(t, gotErr)
	assert.Equal(t, []int64{99}, ids(store[5]))
}

func TestConfirmFromProposedIsRejectedLocally(t *testing.T) {
	b := &fakeBackend{}
	store := memStore{5: {proposed(1, CanMarkDone)}}
	lc, exec := newTestLifecycle(t, b, store)

	var gotErr error
	lc.Transition(5, 1, "", StatusCompleted, "", func(err error) { gotErr = err })

	assert.True(t, errors.IsPrecondition(gotErr))
	assert.ErrorIs(t, gotErr, ErrIllegalTransition)
	assert.Equal(t, 0, exec.Len(), "no request queued")
	assert.Empty(t, b.transCalls)
}

func TestActionNotOfferedIsRejectedLocally(t *testing.T) {
	b := &fakeBackend{}
	store := memStore{5: {pending(1, CanReturn)}}
	lc, exec := newTestLifecycle(t, b, store)

	var gotErr error
	lc.Transition(5, 1, "", StatusCompleted, "", func(err error) { gotErr = err })

	assert.ErrorIs(t, gotErr, ErrActionNotOffered)
	assert.Equal(t, 0, exec.Len())
}

func TestReturnWithBlankNoteSendsNothing(t *testing.T) {
	for _, note := range []string{"", "   ", "\t\n"} {
		b := &fakeBackend{}
		store := memStore{5: {pending(1, CanConfirm|CanReturn)}}
		lc, exec := newTestLifecycle(t, b, store)

		var gotErr error
		lc.Transition(5, 1, "", StatusProposed, note, func(err error) { gotErr = err })

		assert.ErrorIs(t, gotErr, ErrNoteRequired)
		assert.Equal(t, 0, exec.Len())
		assert.Empty(t, b.transCalls)
		assert.Equal(t, StatusDonePendingOwner, store[5][0].Status, "cache unchanged")
	}
}

func TestReturnWithNoteTransitionsAndRelists(t *testing.T) {
	b := &fakeBackend{list: []Item{proposed(1, CanMarkDone)}}
	store := memStore{5: {pending(1, CanConfirm|CanReturn)}}
	obs := &countingObserver{}
	lc, exec := newTestLifecycle(t, b, store, WithObserver(obs))

	called := 0
	var gotErr error
	lc.Transition(5, 1, "/custom/", StatusProposed, "  chybí foto  ", func(err error) {
		called++
		gotErr = err
	})
	exec.RunAll()

	require.NoError(t, gotErr)
	assert.Equal(t, 1, called)
	require.Len(t, b.transCalls, 1)
	assert.Equal(t, ActionReturn, b.transCalls[0].Action)
	assert.Equal(t, StatusProposed, b.transCalls[0].Target)
	assert.Equal(t, "chybí foto", b.transCalls[0].Note)
	assert.Equal(t, "/custom/", b.transURLs[0])
	assert.Equal(t, 1, b.listCalls, "success triggers a full re-list")
	assert.Equal(t, StatusProposed, store[5][0].Status)
	assert.Equal(t, []string{"return:success"}, obs.results)
}

func TestTransitionFailureKeepsCache(t *testing.T) {
	b := &fakeBackend{transErr: errors.NewStd("server rejected")}
	store := memStore{5: {proposed(1, CanMarkDone)}}
	lc, exec := newTestLifecycle(t, b, store)

	called := 0
	var gotErr error
	lc.Transition(5, 1, "", StatusDonePendingOwner, "", func(err error) {
		called++
		gotErr = err
	})
	exec.RunAll()

	assert.Error(t, gotErr)
	assert.Equal(t, 1, called, "callback fires once so the control is re-enabled")
	assert.Equal(t, 0, b.listCalls, "no retry, no re-list")
	assert.Equal(t, StatusProposed, store[5][0].Status)
}

func TestTransitionURLFallbacks(t *testing.T) {
	t.Run("resolver", func(t *testing.T) {
		b := &fakeBackend{}
		it := proposed(1, CanMarkDone)
		it.TransitionURL = ""
		store := memStore{5: {it}}
		lc, exec := newTestLifecycle(t, b, store, WithTransitionURLResolver(func(r, i int64) (string, bool) {
			return "/resolved/", true
		}))

		lc.Transition(5, 1, "", StatusDonePendingOwner, "", nil)
		exec.RunAll()
		assert.Equal(t, []string{"/resolved/"}, b.transURLs)
	})

	t.Run("unavailable", func(t *testing.T) {
		b := &fakeBackend{}
		it := proposed(1, CanMarkDone)
		it.TransitionURL = ""
		store := memStore{5: {it}}
		lc, exec := newTestLifecycle(t, b, store)

		var gotErr error
		lc.Transition(5, 1, "", StatusDonePendingOwner, "", func(err error) { gotErr = err })
		assert.True(t, errors.IsUnavailable(gotErr))
		assert.Equal(t, 0, exec.Len())
	})
}

func TestUnknownIntervention(t *testing.T) {
	lc, _ := newTestLifecycle(t, &fakeBackend{}, memStore{})
	var gotErr error
	lc.Transition(5, 1, "", StatusDonePendingOwner, "", func(err error) { gotErr = err })
	assert.ErrorIs(t, gotErr, ErrUnknownIntervention)
}

func TestCreateReplacesExistingID(t *testing.T) {
	existing := proposed(7, CanMarkDone)
	existing.Name = "old"
	updated := proposed(7, CanMarkDone)
	updated.Name = "new"

	b := &fakeBackend{created: updated}
	store := memStore{5: {proposed(3, 0), existing}}
	lc, exec := newTestLifecycle(t, b, store)

	lc.Create(5, CreateFields{Code: "REZ"}, nil)
	exec.RunAll()

	require.Len(t, store[5], 2, "length unchanged")
	assert.Equal(t, "new", store[5][1].Name)
	assert.Equal(t, 0, b.listCalls)
}

func TestCreateInsertsAtHead(t *testing.T) {
	b := &fakeBackend{created: proposed(9, CanMarkDone)}
	store := memStore{5: {proposed(3, 0)}}
	lc, exec := newTestLifecycle(t, b, store)

	var got Item
	lc.Create(5, CreateFields{Code: "REZ"}, func(it Item, err error) {
		require.NoError(t, err)
		got = it
	})
	exec.RunAll()

	assert.Equal(t, int64(9), got.ID)
	assert.Equal(t, []int64{9, 3}, ids(store[5]))
}

func TestCreateWithoutAllowedActionsRelists(t *testing.T) {
	created := Item{ID: 9, Status: StatusProposed}
	b := &fakeBackend{created: created, list: []Item{proposed(9, CanMarkDone), proposed(3, 0)}}
	store := memStore{5: {proposed(3, 0)}}
	lc, exec := newTestLifecycle(t, b, store)

	lc.Create(5, CreateFields{Code: "REZ"}, nil)
	exec.RunAll()

	assert.Equal(t, 1, b.listCalls)
	require.Len(t, store[5], 2)
	assert.True(t, store[5][0].Offers(ActionMarkDone), "actions come from the server list")
}

func TestCreateNoteRules(t *testing.T) {
	rules := map[string]NoteRule{"KAC": {Required: true, Hint: "Uveďte důvod."}}

	b := &fakeBackend{created: proposed(9, 0)}
	lc, exec := newTestLifecycle(t, b, memStore{}, WithNoteRules(rules))

	var gotErr error
	lc.Create(5, CreateFields{Code: "KAC", Note: "  "}, func(_ Item, err error) { gotErr = err })
	assert.ErrorIs(t, gotErr, ErrNoteRequired)
	assert.Equal(t, 0, exec.Len())

	lc.Create(5, CreateFields{Code: " "}, func(_ Item, err error) { gotErr = err })
	assert.ErrorIs(t, gotErr, ErrTypeRequired)

	assert.Equal(t, "Uveďte důvod.", lc.NoteRule("KAC").Hint)
	assert.Equal(t, 0, b.createCalls)
}

func TestCreateFailureLeavesCache(t *testing.T) {
	b := &fakeBackend{createErr: errors.ValidationError("Pole je povinné.")}
	store := memStore{5: {proposed(3, 0)}}
	lc, exec := newTestLifecycle(t, b, store)

	var gotErr error
	lc.Create(5, CreateFields{Code: "REZ"}, func(_ Item, err error) { gotErr = err })
	exec.RunAll()

	assert.Error(t, gotErr)
	assert.Equal(t, []int64{3}, ids(store[5]))
}

func ids(items []Item) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestTransitionAppliedButRelistFailed(t *testing.T) {
	b := &fakeBackend{listErr: errors.NewStd("timeout")}
	store := memStore{5: {proposed(1, CanMarkDone)}}
	lc, exec := newTestLifecycle(t, b, store)

	called := 0
	var gotErr error
	lc.Transition(5, 1, "", StatusDonePendingOwner, "", func(err error) {
		called++
		gotErr = err
	})
	exec.RunAll()

	assert.Equal(t, 1, called)
	require.Len(t, b.transCalls, 1)
	var relist *RelistError
	require.True(t, errors.As(gotErr, &relist), "the server applied the transition")
	assert.EqualError(t, relist.Err, "timeout")
	assert.Equal(t, StatusProposed, store[5][0].Status, "stale until the next list")
}
