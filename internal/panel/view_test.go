package panel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/worktracker-go/internal/geo"
	"github.com/tphakala/worktracker-go/internal/i18n"
	"github.com/tphakala/worktracker-go/internal/intervention"
	"github.com/tphakala/worktracker-go/internal/movelocation"
	"github.com/tphakala/worktracker-go/internal/record"
	"github.com/tphakala/worktracker-go/internal/trackerapi"
)

func TestRenderTitle(t *testing.T) {
	t.Parallel()
	p := i18n.NewPrinter("cs")

	tests := []struct {
		name string
		rec  record.Record
		want string
	}{
		{"title", record.Record{ID: 1, Title: "  Buk lesní "}, "Buk lesní"},
		{"blank title falls back to id", record.Record{ID: 12}, "12"},
		{"error without title", record.Record{ID: 12, ErrorMessage: "x"}, "Detail stromu"},
		{"error keeps title", record.Record{ID: 12, Title: "Buk", ErrorMessage: "x"}, "Buk"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v := Render(tt.rec, movelocation.Snapshot{}, Capabilities{}, p)
			assert.True(t, v.Open)
			assert.Equal(t, tt.want, v.Title)
		})
	}
}

func TestRenderPhotos(t *testing.T) {
	t.Parallel()
	p := i18n.NewPrinter("cs")
	photos := []record.Photo{
		{Thumb: "/t/1.jpg", Full: "/f/1.jpg"},
		{Full: "/f/2.jpg"},
		{Thumb: "/t/3.jpg", Full: "/f/3.jpg"},
	}

	t.Run("first two thumbnails", func(t *testing.T) {
		t.Parallel()
		v := Render(record.Record{ID: 1, Photos: photos}, movelocation.Snapshot{}, Capabilities{}, p)
		require.Len(t, v.Photos.Thumbs, 2)
		assert.Equal(t, 3, v.Photos.Total)
		assert.Equal(t, Thumb{Index: 0, Src: "/t/1.jpg", Full: "/f/1.jpg"}, v.Photos.Thumbs[0])
		assert.Equal(t, "/f/2.jpg", v.Photos.Thumbs[1].Src, "missing thumbnail uses the full image")
	})

	t.Run("loading wins", func(t *testing.T) {
		t.Parallel()
		v := Render(record.Record{ID: 1, Photos: photos, PhotosLoading: true}, movelocation.Snapshot{}, Capabilities{}, p)
		assert.True(t, v.Photos.Loading)
		assert.Empty(t, v.Photos.Thumbs)
	})

	t.Run("has photos but none loaded", func(t *testing.T) {
		t.Parallel()
		v := Render(record.Record{ID: 1, HasPhotos: true}, movelocation.Snapshot{}, Capabilities{}, p)
		assert.Equal(t, "Fotky se načtou po kliknutí na bod.", v.Photos.Text)
	})

	t.Run("no photos", func(t *testing.T) {
		t.Parallel()
		v := Render(record.Record{ID: 1}, movelocation.Snapshot{}, Capabilities{}, p)
		assert.Equal(t, "Bez fotodokumentace", v.Photos.Text)
	})

	t.Run("error replaces photos", func(t *testing.T) {
		t.Parallel()
		v := Render(record.Record{ID: 1, Photos: photos, ErrorMessage: "Chyba"}, movelocation.Snapshot{}, Capabilities{}, p)
		assert.True(t, v.Photos.Error)
		assert.Equal(t, "Chyba", v.Photos.Text)
	})
}

func TestRenderInterventions(t *testing.T) {
	t.Parallel()
	p := i18n.NewPrinter("cs")
	created := time.Date(2026, 10, 2, 9, 5, 0, 0, time.UTC)
	handed := time.Date(2026, 10, 16, 14, 30, 0, 0, time.UTC)

	rec := record.Record{
		ID:                  42,
		InterventionsLoaded: true,
		Interventions: []intervention.Item{
			{ID: 1, Code: "KAC", Name: "Kácení", Status: intervention.StatusCompleted, CreatedAt: created, AllowedKnown: true},
			{
				ID: 2, Code: "RZ", Name: "Redukční řez", Status: intervention.StatusDonePendingOwner,
				CreatedAt: created, HandedOverAt: &handed,
				Allowed: intervention.CanConfirm | intervention.CanReturn, AllowedKnown: true,
			},
			{ID: 3, Code: "OS", Name: "Ošetření", Status: intervention.StatusProposed, CreatedAt: created},
		},
	}

	t.Run("hidden without capability", func(t *testing.T) {
		t.Parallel()
		v := Render(rec, movelocation.Snapshot{}, Capabilities{}, p)
		assert.Equal(t, InterventionSection{}, v.Interventions)
	})

	t.Run("current and history", func(t *testing.T) {
		t.Parallel()
		v := Render(rec, movelocation.Snapshot{}, Capabilities{Interventions: true}, p)
		s := v.Interventions
		require.True(t, s.Loaded)
		require.Len(t, s.Current, 2)
		require.Len(t, s.History, 1)

		pending := s.Current[0]
		assert.Equal(t, int64(2), pending.ID)
		assert.Equal(t, "Hotovo – čeká na potvrzení", pending.Status)
		assert.Equal(t, "Předáno ke kontrole: 16. 10. 2026 14:30", pending.Timestamp)
		require.Len(t, pending.Actions, 2)
		assert.Equal(t, intervention.ActionConfirm, pending.Actions[0].Action)
		assert.Equal(t, intervention.StatusCompleted, pending.Actions[0].Target)
		assert.Equal(t, intervention.ActionReturn, pending.Actions[1].Action)
		assert.True(t, pending.Actions[1].RequiresNote)

		proposed := s.Current[1]
		assert.Equal(t, "Vytvořeno: 2. 10. 2026 09:05", proposed.Timestamp)
		assert.Empty(t, proposed.Actions, "unknown allowed actions offer nothing")

		assert.Equal(t, "Dokončeno", s.History[0].Status)
	})

	t.Run("empty list", func(t *testing.T) {
		t.Parallel()
		empty := record.Record{ID: 42, InterventionsLoaded: true}
		v := Render(empty, movelocation.Snapshot{}, Capabilities{Interventions: true}, p)
		assert.Equal(t, "Zatím nejsou zadány žádné zásahy.", v.Interventions.Text)
	})
}

func TestRenderMove(t *testing.T) {
	t.Parallel()
	p := i18n.NewPrinter("cs")
	rec := record.Record{ID: 42, Title: "Dub"}
	pending := geo.Coordinate{Lat: 49.9, Lon: 18.35}

	t.Run("other record", func(t *testing.T) {
		t.Parallel()
		v := Render(rec, movelocation.Snapshot{State: movelocation.Active, Target: 7}, Capabilities{}, p)
		assert.False(t, v.Move.Active)
	})

	t.Run("active without coordinate", func(t *testing.T) {
		t.Parallel()
		v := Render(rec, movelocation.Snapshot{State: movelocation.Active, Target: 42}, Capabilities{}, p)
		assert.True(t, v.Move.Active)
		assert.False(t, v.Move.CanCommit)
		assert.Equal(t, "Klikněte do mapy na novou polohu.", v.Move.Text)
	})

	t.Run("pending coordinate", func(t *testing.T) {
		t.Parallel()
		snap := movelocation.Snapshot{State: movelocation.Active, Target: 42, Pending: &pending}
		v := Render(rec, snap, Capabilities{}, p)
		assert.True(t, v.Move.CanCommit)
		assert.Equal(t, "Nová poloha: 49.900000, 18.350000", v.Move.Text)
	})

	t.Run("failed commit", func(t *testing.T) {
		t.Parallel()
		snap := movelocation.Snapshot{
			State: movelocation.Active, Target: 42, Pending: &pending,
			LastErr: &trackerapi.ResponseError{Operation: "set_location", StatusCode: 500},
		}
		v := Render(rec, snap, Capabilities{}, p)
		assert.Equal(t, "Nepodařilo se uložit polohu.", v.Move.Error)
	})
}

func TestRenderDoesNotAliasRecord(t *testing.T) {
	t.Parallel()
	pos := geo.Coordinate{Lat: 49.9, Lon: 18.3}
	rec := record.Record{ID: 1, Position: &pos}

	v := Render(rec, movelocation.Snapshot{}, Capabilities{}, i18n.Default())
	v.Position.Lat = 0

	assert.InDelta(t, 49.9, pos.Lat, 1e-9)
}
