package intervention

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionFor(t *testing.T) {
	tests := []struct {
		from, to Status
		want     Action
		ok       bool
	}{
		{StatusProposed, StatusDonePendingOwner, ActionMarkDone, true},
		{StatusDonePendingOwner, StatusCompleted, ActionConfirm, true},
		{StatusDonePendingOwner, StatusProposed, ActionReturn, true},
		{StatusProposed, StatusCompleted, "", false},
		{StatusCompleted, StatusProposed, "", false},
		{StatusCompleted, StatusDonePendingOwner, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			got, ok := ActionFor(tt.from, tt.to)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestActionTarget(t *testing.T) {
	assert.Equal(t, StatusDonePendingOwner, ActionMarkDone.Target())
	assert.Equal(t, StatusCompleted, ActionConfirm.Target())
	assert.Equal(t, StatusProposed, ActionReturn.Target())
	assert.True(t, ActionReturn.RequiresNote())
	assert.False(t, ActionConfirm.RequiresNote())
}

func TestParseActions(t *testing.T) {
	set, unknown := ParseActions([]string{"confirm", " return ", "archive"})

	assert.True(t, set.Has(ActionConfirm))
	assert.True(t, set.Has(ActionReturn))
	assert.False(t, set.Has(ActionMarkDone))
	assert.Equal(t, []string{"archive"}, unknown)
	assert.Equal(t, []Action{ActionConfirm, ActionReturn}, set.Actions())
}

func TestOffersRequiresKnownSet(t *testing.T) {
	it := Item{Status: StatusProposed, Allowed: CanMarkDone}
	assert.False(t, it.Offers(ActionMarkDone), "unknown allowed set offers nothing")

	it.AllowedKnown = true
	assert.True(t, it.Offers(ActionMarkDone))
	assert.False(t, it.Offers(ActionConfirm))
}

func TestPartition(t *testing.T) {
	items := []Item{
		{ID: 1, Status: StatusCompleted},
		{ID: 2, Status: StatusProposed},
		{ID: 3, Status: StatusDonePendingOwner},
		{ID: 4, Status: StatusCompleted},
	}

	current, history := Partition(items)

	require.Len(t, current, 2)
	require.Len(t, history, 2)
	assert.Equal(t, int64(2), current[0].ID)
	assert.Equal(t, int64(3), current[1].ID)
	assert.Equal(t, int64(1), history[0].ID)
	assert.Equal(t, int64(4), history[1].ID)
}

func TestUpsert(t *testing.T) {
	items := []Item{{ID: 7, Name: "Řez"}, {ID: 3, Name: "Kácení"}}

	t.Run("replace existing id keeps length", func(t *testing.T) {
		got := Upsert(items, Item{ID: 7, Name: "Řez updated"})
		require.Len(t, got, 2)
		assert.Equal(t, "Řez updated", got[0].Name)
		assert.Equal(t, "Řez", items[0].Name, "input is not mutated")
	})

	t.Run("new id goes to head", func(t *testing.T) {
		got := Upsert(items, Item{ID: 9, Name: "Vazba"})
		require.Len(t, got, 3)
		assert.Equal(t, int64(9), got[0].ID)
		assert.Equal(t, int64(7), got[1].ID)
	})
}
