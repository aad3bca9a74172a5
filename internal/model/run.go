package model

import "time"

// RunStatus tracks a pipeline phase run in the run log.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one execution of a pipeline phase, recorded for auditing and to
// let operators see what a long job did after the fact.
type Run struct {
	ID        string     `json:"id"`
	Phase     string     `json:"phase"`
	Status    RunStatus  `json:"status"`
	Result    *RunReport `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunReport is the exit/reporting contract of a pipeline phase: every
// completed run accounts for all records it touched.
type RunReport struct {
	Total         int            `json:"total"`
	Processed     int            `json:"processed"`
	Enriched      int            `json:"enriched,omitempty"`
	FromFallback  int            `json:"from_fallback,omitempty"`
	Skipped       int            `json:"skipped,omitempty"`
	Collisions    int            `json:"collisions,omitempty"`
	Failed        int            `json:"failed,omitempty"`
	OCRRequired   int            `json:"ocr_required,omitempty"`
	FailReasons   map[string]int `json:"fail_reasons,omitempty"`
	FieldCoverage map[string]int `json:"field_coverage,omitempty"`
	ElapsedSecs   float64        `json:"elapsed_secs"`
}
