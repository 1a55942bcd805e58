// Package i18n holds the user-facing panel strings. Czech is the default
// locale; English is provided for terminals and logs read by non-Czech
// operators.
package i18n

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Key identifies one message.
type Key string

const (
	TitleLoading     Key = "title.loading"
	TitlePlaceholder Key = "title.placeholder"
	TitleFallback    Key = "title.fallback"

	PhotosLoading    Key = "photos.loading"
	PhotosAfterClick Key = "photos.after_click"
	PhotosNone       Key = "photos.none"

	ErrDetail               Key = "err.detail"
	ErrAssessmentLoad       Key = "err.assessment_load"
	ErrAssessmentSave       Key = "err.assessment_save"
	ErrPhotoRejected        Key = "err.photo_rejected"
	ErrPhotoSave            Key = "err.photo_save"
	ErrInterventionSave     Key = "err.intervention_save"
	ErrInterventionList     Key = "err.intervention_list"
	ErrInterventionHandover Key = "err.intervention_handover"
	ErrLocationSave         Key = "err.location_save"
	ErrProjectAdd           Key = "err.project_add"
	ErrNoteRequired         Key = "err.note_required"
	ErrNoCoordinate         Key = "err.no_coordinate"

	MsgInterventionSaved Key = "msg.intervention_saved"
	MsgLocationSaved     Key = "msg.location_saved"
	MsgProjectAdded      Key = "msg.project_added"
	MsgPhotoSaved        Key = "msg.photo_saved"
	MsgAssessmentSaved   Key = "msg.assessment_saved"

	InterventionsLoading Key = "interventions.loading"
	InterventionsEmpty   Key = "interventions.empty"
	InterventionsHistory Key = "interventions.history"
	NoteHintDefault      Key = "note.hint_default"
	LabelHandedOver      Key = "label.handed_over"
	LabelCreated         Key = "label.created"

	MoveActive     Key = "move.active"
	MovePending    Key = "move.pending"
	MoveCommitting Key = "move.committing"

	PerspectiveA     Key = "perspective.a"
	PerspectiveB     Key = "perspective.b"
	PerspectiveC     Key = "perspective.c"
	PerspectiveUnset Key = "perspective.unset"

	StatusProposed         Key = "status.proposed"
	StatusDonePendingOwner Key = "status.done_pending_owner"
	StatusCompleted        Key = "status.completed"

	ActionMarkDone Key = "action.mark_done"
	ActionConfirm  Key = "action.confirm"
	ActionReturn   Key = "action.return"

	Obstacle0 Key = "obstacle.0"
	Obstacle1 Key = "obstacle.1"
	Obstacle2 Key = "obstacle.2"

	Mistletoe1 Key = "mistletoe.1"
	Mistletoe2 Key = "mistletoe.2"
	Mistletoe3 Key = "mistletoe.3"
	Mistletoe4 Key = "mistletoe.4"
	Mistletoe5 Key = "mistletoe.5"
)

var czech = map[Key]string{
	TitleLoading:     "Načítám…",
	TitlePlaceholder: "WR %d",
	TitleFallback:    "Detail stromu",

	PhotosLoading:    "Načítám fotografie…",
	PhotosAfterClick: "Fotky se načtou po kliknutí na bod.",
	PhotosNone:       "Bez fotodokumentace",

	ErrDetail:               "Nepodařilo se načíst detaily.",
	ErrAssessmentLoad:       "Nepodařilo se načíst hodnocení.",
	ErrAssessmentSave:       "Chyba při ukládání hodnocení.",
	ErrPhotoRejected:        "Nepodařilo se uložit fotku.",
	ErrPhotoSave:            "Chyba při ukládání fotky.",
	ErrInterventionSave:     "Nepodařilo se uložit zásah.",
	ErrInterventionList:     "Nepodařilo se načíst zásahy.",
	ErrInterventionHandover: "Nepodařilo se předat zásah ke kontrole.",
	ErrLocationSave:         "Nepodařilo se uložit polohu.",
	ErrProjectAdd:           "Nepodařilo se přidat strom do projektu.",
	ErrNoteRequired:         "Poznámka je povinná.",
	ErrNoCoordinate:         "Nejprve vyberte novou polohu na mapě.",

	MsgInterventionSaved: "Zásah byl uložen.",
	MsgLocationSaved:     "Poloha byla uložena.",
	MsgProjectAdded:      "Strom byl přidán do projektu.",
	MsgPhotoSaved:        "Fotka byla uložena.",
	MsgAssessmentSaved:   "Hodnocení bylo uloženo.",

	InterventionsLoading: "Načítám zásahy…",
	InterventionsEmpty:   "Zatím nejsou zadány žádné zásahy.",
	InterventionsHistory: "Historie zásahů",
	NoteHintDefault:      "Vyžaduje doplnění poznámky.",
	LabelHandedOver:      "Předáno ke kontrole:",
	LabelCreated:         "Vytvořeno:",

	MoveActive:     "Klikněte do mapy na novou polohu.",
	MovePending:    "Nová poloha: %s",
	MoveCommitting: "Ukládám polohu…",

	PerspectiveA:     "a – dlouhodobě perspektivní",
	PerspectiveB:     "b – krátkodobě perspektivní",
	PerspectiveC:     "c – neperspektivní",
	PerspectiveUnset: "(nenastaveno)",

	StatusProposed:         "Navrženo",
	StatusDonePendingOwner: "Hotovo – čeká na potvrzení",
	StatusCompleted:        "Dokončeno",

	ActionMarkDone: "Označit jako hotové",
	ActionConfirm:  "Potvrdit",
	ActionReturn:   "Vrátit k přepracování",

	Obstacle0: "Volné stanoviště",
	Obstacle1: "Pomístní překážky (+30 %%)",
	Obstacle2: "Omezená přístupnost / plné spouštění (+60 %%)",

	Mistletoe1: "R – vzácné (do 5 %% objemu koruny)",
	Mistletoe2: "O – příležitostné (6–10 %% objemu koruny)",
	Mistletoe3: "F – časté (11–30 %% objemu koruny)",
	Mistletoe4: "A – hojné (31–50 %% objemu koruny)",
	Mistletoe5: "D – dominantní (> 50 %% objemu koruny)",
}

var english = map[Key]string{
	TitleLoading:     "Loading…",
	TitlePlaceholder: "WR %d",
	TitleFallback:    "Tree detail",

	PhotosLoading:    "Loading photos…",
	PhotosAfterClick: "Photos load after the point is opened.",
	PhotosNone:       "No photos",

	ErrDetail:               "Could not load details.",
	ErrAssessmentLoad:       "Could not load the assessment.",
	ErrAssessmentSave:       "Saving the assessment failed.",
	ErrPhotoRejected:        "The photo was not saved.",
	ErrPhotoSave:            "Saving the photo failed.",
	ErrInterventionSave:     "Could not save the intervention.",
	ErrInterventionList:     "Could not load interventions.",
	ErrInterventionHandover: "Could not hand the intervention over for review.",
	ErrLocationSave:         "Could not save the location.",
	ErrProjectAdd:           "Could not add the tree to the project.",
	ErrNoteRequired:         "A note is required.",
	ErrNoCoordinate:         "Pick the new location on the map first.",

	MsgInterventionSaved: "Intervention saved.",
	MsgLocationSaved:     "Location saved.",
	MsgProjectAdded:      "Tree added to the project.",
	MsgPhotoSaved:        "Photo saved.",
	MsgAssessmentSaved:   "Assessment saved.",

	InterventionsLoading: "Loading interventions…",
	InterventionsEmpty:   "No interventions yet.",
	InterventionsHistory: "Intervention history",
	NoteHintDefault:      "A note is required.",
	LabelHandedOver:      "Handed over for review:",
	LabelCreated:         "Created:",

	MoveActive:     "Click the map at the new location.",
	MovePending:    "New location: %s",
	MoveCommitting: "Saving location…",

	PerspectiveA:     "a – long-term prospects",
	PerspectiveB:     "b – short-term prospects",
	PerspectiveC:     "c – no prospects",
	PerspectiveUnset: "(not set)",

	StatusProposed:         "Proposed",
	StatusDonePendingOwner: "Done – awaiting confirmation",
	StatusCompleted:        "Completed",

	ActionMarkDone: "Mark as done",
	ActionConfirm:  "Confirm",
	ActionReturn:   "Return for rework",

	Obstacle0: "Free access",
	Obstacle1: "Local obstacles (+30 %%)",
	Obstacle2: "Restricted access / full lowering (+60 %%)",

	Mistletoe1: "R – rare (up to 5 %% of crown volume)",
	Mistletoe2: "O – occasional (6–10 %% of crown volume)",
	Mistletoe3: "F – frequent (11–30 %% of crown volume)",
	Mistletoe4: "A – abundant (31–50 %% of crown volume)",
	Mistletoe5: "D – dominant (> 50 %% of crown volume)",
}

// Supported lists the locales with a full catalog, default first.
var Supported = []language.Tag{language.Czech, language.English}

var (
	cat     = buildCatalog()
	matcher = language.NewMatcher(Supported)
)

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.Czech))
	for tag, table := range map[language.Tag]map[Key]string{
		language.Czech:   czech,
		language.English: english,
	} {
		for k, v := range table {
			if err := b.SetString(tag, string(k), v); err != nil {
				panic(fmt.Sprintf("i18n: %s %s: %v", tag, k, err))
			}
		}
	}
	return b
}

// Printer renders keys for one locale.
type Printer struct {
	tag language.Tag
	p   *message.Printer
}

// NewPrinter returns a printer for locale, e.g. "cs", "en-GB". Unknown or
// empty locales fall back to Czech.
func NewPrinter(locale string) *Printer {
	tag := language.Czech
	if locale = strings.TrimSpace(locale); locale != "" {
		if parsed, err := language.Parse(locale); err == nil {
			_, i, conf := matcher.Match(parsed)
			if conf != language.No {
				tag = Supported[i]
			}
		}
	}
	return &Printer{tag: tag, p: message.NewPrinter(tag, message.Catalog(cat))}
}

// Default is the Czech printer.
func Default() *Printer {
	return NewPrinter("")
}

// Language returns the resolved locale.
func (p *Printer) Language() language.Tag {
	return p.tag
}

// T renders key with args.
func (p *Printer) T(key Key, args ...any) string {
	if p == nil {
		p = Default()
	}
	return p.p.Sprintf(string(key), args...)
}
