// Package metrics provides constants used across metric definitions.
package metrics

import "time"

// Operation label values for tracker API calls.
const (
	OpDetail             = "detail"
	OpAssessmentGet      = "assessment_get"
	OpAssessmentSave     = "assessment_save"
	OpInterventionList   = "intervention_list"
	OpInterventionCreate = "intervention_create"
	OpTransition         = "intervention_transition"
	OpSetLocation        = "set_location"
	OpAddToProject       = "add_to_project"
	OpPhotoUpload        = "photo_upload"
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	// ResultNotOK is a well-formed response whose status is not "ok"
	ResultNotOK = "not_ok"
)

// ShutdownTimeout bounds the metrics listener shutdown.
const ShutdownTimeout = 5 * time.Second
