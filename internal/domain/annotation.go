package domain

const (
	defaultTopic        = "Academic Research"
	defaultMethodology  = "See summary"
	defaultFindings     = "No findings extracted"
	defaultSignificance = "No analysis available"

	findingsExcerpt     = 200
	significanceExcerpt = 300
)

// Annotation is the structured summary produced by the enricher.
type Annotation struct {
	Topic        string   `json:"topic"`
	Findings     []string `json:"findings"`
	Methodology  string   `json:"methodology"`
	Significance string   `json:"significance"`
	Keywords     []string `json:"keywords"`
}

// DefaultAnnotation builds the fallback shape from raw model output that
// could not be parsed.
func DefaultAnnotation(raw string) Annotation {
	finding := Truncate(raw, findingsExcerpt)
	if finding == "" {
		finding = defaultFindings
	}
	significance := Truncate(raw, significanceExcerpt)
	if significance == "" {
		significance = defaultSignificance
	}
	return Annotation{
		Topic:        defaultTopic,
		Findings:     []string{finding},
		Methodology:  defaultMethodology,
		Significance: significance,
		Keywords:     []string{"research", "academic"},
	}
}
