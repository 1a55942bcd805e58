package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/worktracker-go/internal/geo"
	"github.com/tphakala/worktracker-go/internal/intervention"
)

func TestMergeIsLeftFoldOfProvidedFields(t *testing.T) {
	c := NewCache()

	patches := []Patch{
		{ID: 42, Title: Ptr("Strom 42"), HasPhotos: Ptr(false)},
		{ID: 42, Taxon: Ptr("Quercus robur"), HasPhotos: Ptr(true)},
		{ID: 42, Title: Ptr("Dub letní"), Photos: []Photo{{Thumb: "t1", Full: "f1"}}},
		{ID: 42, Position: &geo.Coordinate{Lat: 49.2, Lon: 16.6}},
	}

	want := Record{ID: 42}
	for _, p := range patches {
		want = p.Apply(want)
		c.Merge(p)
	}

	got, ok := c.Get(42)
	require.True(t, ok)
	assert.Equal(t, want, got)
	assert.Equal(t, "Dub letní", got.Title)
	assert.Equal(t, "Quercus robur", got.Taxon)
	assert.True(t, got.HasPhotos)
	require.NotNil(t, got.Position)
	assert.InDelta(t, 49.2, got.Position.Lat, 1e-9)
}

func TestMergeKeepsUnprovidedFields(t *testing.T) {
	c := NewCache()
	c.Merge(Patch{ID: 1, Title: Ptr("A"), Photos: []Photo{{Thumb: "t"}}, Position: &geo.Coordinate{Lat: 1, Lon: 2}})

	merged := c.Merge(Patch{ID: 1, ErrorMessage: Ptr("boom")})

	assert.Equal(t, "A", merged.Title)
	assert.Len(t, merged.Photos, 1)
	assert.NotNil(t, merged.Position)
	assert.Equal(t, "boom", merged.ErrorMessage)
}

func TestMergeEmptySliceReplacesList(t *testing.T) {
	c := NewCache()
	c.Merge(Patch{ID: 1, Photos: []Photo{{Thumb: "t"}}})

	merged := c.Merge(Patch{ID: 1, Photos: []Photo{}})
	assert.Empty(t, merged.Photos)
}

func TestClearPosition(t *testing.T) {
	c := NewCache()
	c.Merge(Patch{ID: 1, Position: &geo.Coordinate{Lat: 1, Lon: 2}})

	merged := c.Merge(Patch{ID: 1, ClearPosition: true})
	assert.Nil(t, merged.Position)
}

func TestSnapshotsDoNotAliasCache(t *testing.T) {
	c := NewCache()
	c.Merge(Patch{ID: 1, Photos: []Photo{{Thumb: "t"}}, Position: &geo.Coordinate{Lat: 1, Lon: 2}})

	snap, _ := c.Get(1)
	snap.Photos[0].Thumb = "changed"
	snap.Position.Lat = 50

	again, _ := c.Get(1)
	assert.Equal(t, "t", again.Photos[0].Thumb)
	assert.InDelta(t, 1, again.Position.Lat, 1e-9)
}

func TestOneEntryPerID(t *testing.T) {
	c := NewCache()
	c.Merge(Patch{ID: 1})
	c.Merge(Patch{ID: 1, Title: Ptr("x")})
	c.Merge(Patch{ID: 2})
	assert.Equal(t, 2, c.Len())
}

func TestInterventionsRoundTrip(t *testing.T) {
	c := NewCache()
	_, ok := c.Get(5)
	assert.False(t, ok)
	assert.Nil(t, c.Interventions(5))

	c.SetInterventions(5, []intervention.Item{{ID: 7}})
	assert.Len(t, c.Interventions(5), 1)

	c.SetInterventions(5, nil)
	rec, _ := c.Get(5)
	assert.Empty(t, rec.Interventions)
	assert.True(t, rec.InterventionsLoaded)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Dub", Record{ID: 3, Title: "  Dub "}.Label())
	assert.Equal(t, "3", Record{ID: 3, Title: "   "}.Label())
}

func TestSelectionGuard(t *testing.T) {
	var g SelectionGuard
	assert.False(t, g.IsActive(0), "nothing active initially")

	g.Activate(1)
	g.Activate(2)
	assert.False(t, g.IsActive(1))
	assert.True(t, g.IsActive(2))

	id, ok := g.Active()
	assert.True(t, ok)
	assert.Equal(t, int64(2), id)

	g.Deactivate()
	assert.False(t, g.IsActive(2))
	_, ok = g.Active()
	assert.False(t, ok)
}

func TestTokenOutlivedBySelection(t *testing.T) {
	var g SelectionGuard

	a := g.Activate(1)
	assert.True(t, g.Current(a))
	assert.Equal(t, int64(1), a.ID())

	b := g.Activate(2)
	assert.False(t, g.Current(a), "A's callback is stale once B is selected")
	assert.True(t, g.Current(b))

	again := g.Activate(1)
	assert.True(t, g.Current(a), "re-selecting A revives tokens issued for A")
	assert.True(t, g.Current(again))

	g.Deactivate()
	assert.False(t, g.Current(again))
}
