package model

import "fmt"

// Source identifies which tribunal register a decision was discovered on.
type Source string

const (
	// SourceGovUK is the GOV.UK residential property tribunal register
	// (England), enriched via the content API.
	SourceGovUK Source = "govuk"
	// SourceWales is the Residential Property Tribunal Wales site,
	// enriched via PDF text extraction.
	SourceWales Source = "wales"
)

// TextSource records where a decision's full text came from.
type TextSource string

const (
	TextSourceNone       TextSource = ""
	TextSourceContentAPI TextSource = "content-api"
	TextSourcePDF        TextSource = "pdf"
)

// EnrichState is the per-record enrichment state machine. Transitions are
// monotonic within a run: pending -> in_progress -> done|failed. A failed
// record may be reset to pending for another pass, never silently dropped.
type EnrichState string

const (
	StatePending    EnrichState = "pending"
	StateInProgress EnrichState = "in_progress"
	StateDone       EnrichState = "done"
	StateFailed     EnrichState = "failed"
)

// Attachment describes a document attached to a decision page.
type Attachment struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
	ContentID   string `json:"content_id,omitempty"`
}

// Structured holds the fields derived from a decision's full text. A field
// the extractor found no match for is left at its zero value and omitted
// from JSON; placeholder values are never fabricated.
type Structured struct {
	Applicant        string    `json:"applicant,omitempty"`
	Respondent       string    `json:"respondent,omitempty"`
	ApplicationType  string    `json:"application_type,omitempty"`
	TribunalMembers  []string  `json:"tribunal_members,omitempty"`
	PresidingJudge   string    `json:"presiding_judge,omitempty"`
	DecisionOutcome  string    `json:"decision_outcome,omitempty"`
	FinancialAmounts []float64 `json:"financial_amounts,omitempty"`
	HearingDate      string    `json:"hearing_date,omitempty"`
	LegalActsCited   []string  `json:"legal_acts_cited,omitempty"`
}

// Decision is a single tribunal decision record. Discovery fills the
// metadata fields; enrichment fills FullText and Attachments; the fallback
// phase fills FullText from PDF attachments; extraction fills Structured.
type Decision struct {
	ID     string `json:"id"`
	Source Source `json:"source"`

	CaseReference   string `json:"case_reference"`
	PropertyAddress string `json:"property_address"`
	RegionCode      string `json:"region_code"`
	Description     string `json:"description,omitempty"`

	Category         string `json:"category"`
	CategoryLabel    string `json:"category_label"`
	SubCategory      string `json:"sub_category,omitempty"`
	SubCategoryLabel string `json:"sub_category_label,omitempty"`

	DecisionDate string `json:"decision_date"`           // YYYY-MM-DD
	PublishedAt  string `json:"published_at,omitempty"`  // RFC3339
	URL          string `json:"url"`

	ContentID   string       `json:"content_id,omitempty"`
	FullText    string       `json:"full_text,omitempty"`
	TextSource  TextSource   `json:"text_source,omitempty"`
	OCRRequired bool         `json:"ocr_required,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`

	State      EnrichState `json:"enrichment_state"`
	FailReason string      `json:"fail_reason,omitempty"`

	Structured *Structured `json:"structured,omitempty"`
}

// Key is the dedup key for a decision. Identifiers are only unique within a
// source; cross-source identity is never assumed.
type Key struct {
	Source Source
	ID     string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Source, k.ID)
}

// Key returns the decision's (source, id) dedup key.
func (d *Decision) Key() Key {
	return Key{Source: d.Source, ID: d.ID}
}

// HasText reports whether the record has usable full text.
func (d *Decision) HasText() bool {
	return d.FullText != ""
}

// Clone returns a deep copy of the decision. Store readers and writers
// exchange clones so no caller ever observes a half-written record.
func (d *Decision) Clone() *Decision {
	c := *d
	if d.Attachments != nil {
		c.Attachments = make([]Attachment, len(d.Attachments))
		copy(c.Attachments, d.Attachments)
	}
	if d.Structured != nil {
		s := *d.Structured
		if s.TribunalMembers != nil {
			s.TribunalMembers = append([]string(nil), s.TribunalMembers...)
		}
		if s.FinancialAmounts != nil {
			s.FinancialAmounts = append([]float64(nil), s.FinancialAmounts...)
		}
		if s.LegalActsCited != nil {
			s.LegalActsCited = append([]string(nil), s.LegalActsCited...)
		}
		c.Structured = &s
	}
	return &c
}
