package domain

// ItemStatus is the terminal state of one item within a run.
type ItemStatus string

const (
	StatusSucceeded ItemStatus = "succeeded"
	StatusSkipped   ItemStatus = "skipped"
	StatusFailed    ItemStatus = "failed"
)

// ItemResult records what happened to a single item.
type ItemResult struct {
	ID     string
	Title  string
	Key    string
	Status ItemStatus
	// Stage names the stage that skipped or failed the item.
	Stage  string
	Reason string
	// Degraded is set when enrichment output was malformed and the default
	// annotation was used.
	Degraded bool
	// Bytes is the size of the downloaded document, zero when none was fetched.
	Bytes int64
}

// RunReport aggregates the outcome of one invocation.
type RunReport struct {
	RunID     string
	Total     int
	Succeeded int
	Skipped   int
	Failed    int
	Degraded  int
	Bytes     int64
	Items     []ItemResult
}

// Add appends a result and updates the counters.
func (r *RunReport) Add(res ItemResult) {
	r.Items = append(r.Items, res)
	r.Total++
	switch res.Status {
	case StatusSucceeded:
		r.Succeeded++
	case StatusSkipped:
		r.Skipped++
	case StatusFailed:
		r.Failed++
	}
	if res.Degraded {
		r.Degraded++
	}
	r.Bytes += res.Bytes
}

// SuccessRate is the share of succeeded items in percent.
func (r RunReport) SuccessRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Succeeded) / float64(r.Total) * 100
}

// Reasons maps failed and skipped item IDs to their reason.
func (r RunReport) Reasons() map[string]string {
	out := make(map[string]string)
	for _, res := range r.Items {
		if res.Status != StatusSucceeded {
			out[res.ID] = res.Reason
		}
	}
	return out
}
