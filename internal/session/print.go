package session

import (
	"fmt"
	"io"
	"strings"

	"github.com/tphakala/worktracker-go/internal/panel"
)

// WriteView prints v as plain text for one-shot commands.
func WriteView(w io.Writer, v panel.View) error {
	var b strings.Builder
	if !v.Open {
		b.WriteString("(no record selected)\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	fmt.Fprintf(&b, "%s", v.Title)
	if v.Taxon != "" {
		fmt.Fprintf(&b, " (%s)", v.Taxon)
	}
	fmt.Fprintf(&b, "  #%d\n", v.RecordID)
	if v.Error != "" {
		fmt.Fprintf(&b, "! %s\n", v.Error)
	}
	if v.Position != nil {
		fmt.Fprintf(&b, "  position: %s\n", v.Position)
	}
	if v.DetailURL != "" {
		fmt.Fprintf(&b, "  detail:   %s\n", v.DetailURL)
	}
	if v.EditURL != "" {
		fmt.Fprintf(&b, "  edit:     %s\n", v.EditURL)
	}

	if v.Photos.Text != "" {
		fmt.Fprintf(&b, "  photos:   %s\n", v.Photos.Text)
	}
	for _, t := range v.Photos.Thumbs {
		fmt.Fprintf(&b, "    [%d] %s\n", t.Index+1, t.Full)
	}
	if extra := v.Photos.Total - len(v.Photos.Thumbs); extra > 0 && len(v.Photos.Thumbs) > 0 {
		fmt.Fprintf(&b, "    +%d\n", extra)
	}

	writeInterventions(&b, v.Interventions)

	if v.Move.Active {
		fmt.Fprintf(&b, "  move:     %s\n", v.Move.Text)
		if v.Move.Error != "" {
			fmt.Fprintf(&b, "  ! %s\n", v.Move.Error)
		}
	}

	if v.Notice.Text != "" {
		mark := "*"
		if v.Notice.Error {
			mark = "!"
		}
		fmt.Fprintf(&b, "%s %s\n", mark, v.Notice.Text)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeInterventions(b *strings.Builder, s panel.InterventionSection) {
	if !s.Loaded && !s.Loading {
		return
	}
	b.WriteString("  interventions:\n")
	if s.Text != "" {
		fmt.Fprintf(b, "    %s\n", s.Text)
	}
	rows := func(list []panel.InterventionRow, prefix string) {
		for _, r := range list {
			fmt.Fprintf(b, "    %s%d %s %s [%s] %s\n", prefix, r.ID, r.Code, r.Name, r.Status, r.Timestamp)
			if r.Note != "" {
				fmt.Fprintf(b, "        %s\n", r.Note)
			}
			if len(r.Actions) > 0 {
				names := make([]string, 0, len(r.Actions))
				for _, a := range r.Actions {
					names = append(names, string(a.Action))
				}
				fmt.Fprintf(b, "        actions: %s\n", strings.Join(names, ", "))
			}
		}
	}
	rows(s.Current, "")
	rows(s.History, "~ ")
}
