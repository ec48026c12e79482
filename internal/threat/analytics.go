package threat

import "time"

const (
	confidenceBuckets = 10
	timelineHours     = 24
	recentCount       = 5
)

// HourBucket tallies threats raised within one hour.
type HourBucket struct {
	Start      time.Time        `json:"start"`
	Total      int              `json:"total"`
	BySeverity map[Severity]int `json:"by_severity"`
}

// Analytics is a derived breakdown of a threat list.
type Analytics struct {
	Total      int              `json:"total"`
	Active     int              `json:"active"`
	Mitigated  int              `json:"mitigated"`
	BySeverity map[Severity]int `json:"by_severity"`
	ByCategory map[Category]int `json:"by_category"`
	// Confidence[i] counts threats with confidence in [i/10, (i+1)/10).
	Confidence [confidenceBuckets]int `json:"confidence"`
	Timeline   []HourBucket           `json:"timeline"`
	Recent     []Threat               `json:"recent"`
}

// Summarize builds Analytics for threats, which are expected newest first.
// The timeline covers the 24 hours ending at now, oldest bucket first.
func Summarize(threats []Threat, now time.Time) Analytics {
	a := Analytics{
		Total:      len(threats),
		BySeverity: make(map[Severity]int, len(Severities)),
		ByCategory: make(map[Category]int, len(Categories)),
		Timeline:   make([]HourBucket, timelineHours),
	}
	for _, s := range Severities {
		a.BySeverity[s] = 0
	}
	end := now.Truncate(time.Hour).Add(time.Hour)
	start := end.Add(-timelineHours * time.Hour)
	for i := range a.Timeline {
		a.Timeline[i] = HourBucket{
			Start:      start.Add(time.Duration(i) * time.Hour),
			BySeverity: map[Severity]int{},
		}
	}

	for _, t := range threats {
		a.BySeverity[t.Severity]++
		a.ByCategory[t.Category]++
		if t.Mitigated {
			a.Mitigated++
		} else {
			a.Active++
		}
		b := int(t.Confidence * confidenceBuckets)
		if b < 0 {
			b = 0
		}
		if b >= confidenceBuckets {
			b = confidenceBuckets - 1
		}
		a.Confidence[b]++

		if t.Timestamp.Before(start) || !t.Timestamp.Before(end) {
			continue
		}
		h := int(t.Timestamp.Sub(start) / time.Hour)
		a.Timeline[h].Total++
		a.Timeline[h].BySeverity[t.Severity]++
	}

	n := recentCount
	if len(threats) < n {
		n = len(threats)
	}
	a.Recent = append([]Threat{}, threats[:n]...)
	return a
}
