// Package photo covers the photo viewer album and the capture upload form.
package photo

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tphakala/worktracker-go/internal/record"
)

// PanelThumbs is how many thumbnails the panel shows.
const PanelThumbs = 2

// Album is the viewer state for one record's photos.
type Album struct {
	photos []record.Photo
	index  int
}

// NewAlbum copies photos and opens at start, clamped into range.
func NewAlbum(photos []record.Photo, start int) *Album {
	a := &Album{photos: append([]record.Photo(nil), photos...)}
	a.Show(start)
	return a
}

// Len returns the number of photos.
func (a *Album) Len() int {
	return len(a.photos)
}

// Show moves to i, clamped into range.
func (a *Album) Show(i int) {
	if len(a.photos) == 0 {
		a.index = 0
		return
	}
	a.index = max(0, min(i, len(a.photos)-1))
}

// Next moves forward, wrapping to the first photo.
func (a *Album) Next() {
	if len(a.photos) == 0 {
		return
	}
	a.index = (a.index + 1) % len(a.photos)
}

// Prev moves back, wrapping to the last photo.
func (a *Album) Prev() {
	if len(a.photos) == 0 {
		return
	}
	a.index = (a.index - 1 + len(a.photos)) % len(a.photos)
}

// Current returns the shown photo.
func (a *Album) Current() (record.Photo, bool) {
	if len(a.photos) == 0 {
		return record.Photo{}, false
	}
	return a.photos[a.index], true
}

// Index returns the zero-based position of the shown photo.
func (a *Album) Index() int {
	return a.index
}

// Source is the full image, falling back to the thumbnail.
func Source(p record.Photo) string {
	if p.Full != "" {
		return p.Full
	}
	return p.Thumb
}

// Thumb is the thumbnail, falling back to the full image.
func Thumb(p record.Photo) string {
	if p.Thumb != "" {
		return p.Thumb
	}
	return p.Full
}

// Upload is one captured photo to send.
type Upload struct {
	RecordID int64
	Filename string
	Content  io.Reader
	Comment  string
	TakenAt  time.Time
}

// FormatDate renders a date the Czech short way, e.g. "16. 10. 2026".
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%d. %d. %d", t.Day(), int(t.Month()), t.Year())
}

// FinalComment prefixes the user's comment with the capture date, or
// returns the date alone when the comment is blank.
func (u Upload) FinalComment() string {
	taken := u.TakenAt
	if taken.IsZero() {
		taken = time.Now()
	}
	date := FormatDate(taken)
	if c := strings.TrimSpace(u.Comment); c != "" {
		return date + " – " + c
	}
	return date
}
