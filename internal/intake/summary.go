package intake

import (
	"regexp"
	"strings"
)

// LeadSummary is the parsed form of the model's closing summary block.
type LeadSummary struct {
	Name          string
	Phone         string
	Reason        string
	PreferredTime string
}

var summaryFieldREs = map[string]*regexp.Regexp{
	"name":  regexp.MustCompile(`(?mi)^\s*Name:\s*(.+?)\s*$`),
	"phone": regexp.MustCompile(`(?mi)^\s*Telefon:\s*(.+?)\s*$`),
	"grund": regexp.MustCompile(`(?mi)^\s*Grund:\s*(.+?)\s*$`),
	"zeit":  regexp.MustCompile(`(?mi)^\s*Wunschtermin:\s*(.+?)\s*$`),
}

// ParseLeadSummary inspects a model reply for the summary marker and the four
// labeled fields. Detection is all-or-nothing: the marker without all four
// parseable fields yields (zero, false), never a partial lead.
func ParseLeadSummary(reply string) (LeadSummary, bool) {
	if !strings.Contains(reply, SummaryMarker) {
		return LeadSummary{}, false
	}

	get := func(key string) string {
		match := summaryFieldREs[key].FindStringSubmatch(reply)
		if len(match) < 2 {
			return ""
		}
		return strings.TrimSpace(match[1])
	}

	summary := LeadSummary{
		Name:          get("name"),
		Phone:         get("phone"),
		Reason:        get("grund"),
		PreferredTime: get("zeit"),
	}
	if summary.Name == "" || summary.Phone == "" || summary.Reason == "" || summary.PreferredTime == "" {
		return LeadSummary{}, false
	}
	return summary, true
}
