package domain

// Severity is the choropleth bucket for a confirmed count.
type Severity int

const (
	SeverityNone     Severity = iota // 0
	SeverityLow                      // 1-10
	SeverityModerate                 // 11-100
	SeverityHigh                     // 101-1000
	SeveritySevere                   // >1000
)

// NoReportLabel is the legend text for provinces missing from the feed.
const NoReportLabel = "无数据"

var severityLabels = [...]string{"0人", "1-10人", "11-100人", "101-1000人", ">1000人"}

var severityNames = [...]string{"none", "low", "moderate", "high", "severe"}

// Bucket classifies a confirmed count. Negative counts fall into
// SeverityNone.
func Bucket(count int) Severity {
	switch {
	case count <= 0:
		return SeverityNone
	case count <= 10:
		return SeverityLow
	case count <= 100:
		return SeverityModerate
	case count <= 1000:
		return SeverityHigh
	default:
		return SeveritySevere
	}
}

// Severities lists every bucket in ascending order.
func Severities() []Severity {
	return []Severity{SeverityNone, SeverityLow, SeverityModerate, SeverityHigh, SeveritySevere}
}

// Label returns the legend text for the bucket.
func (s Severity) Label() string {
	if s < SeverityNone || s > SeveritySevere {
		return ""
	}
	return severityLabels[s]
}

func (s Severity) String() string {
	if s < SeverityNone || s > SeveritySevere {
		return "unknown"
	}
	return severityNames[s]
}
