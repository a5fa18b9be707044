package domain

import "time"

// SummaryLimit bounds the summary stored with a record.
const SummaryLimit = 500

// Record is the persisted representation of a processed item.
type Record struct {
	PaperID        string            `json:"paper_id" dynamodbav:"paper_id"`
	Title          string            `json:"title" dynamodbav:"title"`
	Authors        string            `json:"authors" dynamodbav:"authors"`
	PublishedDate  string            `json:"published_date" dynamodbav:"published_date"`
	Link           string            `json:"link" dynamodbav:"link"`
	Summary        string            `json:"summary" dynamodbav:"summary"`
	AITopic        string            `json:"ai_topic" dynamodbav:"ai_topic"`
	AIFindings     []string          `json:"ai_findings" dynamodbav:"ai_findings"`
	AIMethodology  string            `json:"ai_methodology" dynamodbav:"ai_methodology"`
	AISignificance string            `json:"ai_significance" dynamodbav:"ai_significance"`
	AIKeywords     []string          `json:"ai_keywords" dynamodbav:"ai_keywords"`
	ProcessedAt    time.Time         `json:"processed_at" dynamodbav:"processed_at"`
	Source         string            `json:"source" dynamodbav:"source"`
	Metadata       map[string]string `json:"metadata" dynamodbav:"metadata"`

	// Content is the downloaded document, written by blob sinks instead of
	// the record itself when present.
	Content     []byte `json:"-" dynamodbav:"-"`
	ContentType string `json:"-" dynamodbav:"-"`
}

// NewRecord combines an item with its optional annotation.
func NewRecord(item Item, ann *Annotation, processedAt time.Time, metadata map[string]string) Record {
	rec := Record{
		PaperID:       item.ID,
		Title:         item.Title,
		Authors:       item.Authors,
		PublishedDate: item.Published,
		Link:          item.Link,
		Summary:       Truncate(item.Summary, SummaryLimit),
		ProcessedAt:   processedAt.UTC(),
		Source:        item.Source,
		Metadata:      metadata,
	}
	if ann != nil {
		rec.AITopic = ann.Topic
		rec.AIFindings = ann.Findings
		rec.AIMethodology = ann.Methodology
		rec.AISignificance = ann.Significance
		rec.AIKeywords = ann.Keywords
	}
	return rec
}

// ProcessedAtISO renders the timestamp the way the database sinks store it.
func (r Record) ProcessedAtISO() string {
	return r.ProcessedAt.UTC().Format(time.RFC3339Nano)
}

// Annotated reports whether the record carries enrichment fields.
func (r Record) Annotated() bool {
	return r.AITopic != "" || len(r.AIFindings) > 0 || len(r.AIKeywords) > 0
}
