package intake

import "strings"

// Urgency tags attached to a lead.
const (
	UrgencyAcute  = "akut"
	UrgencyNormal = "normal"
)

// urgentPhrases are matched as plain substrings of the lowercased text.
// Grammatical case variants are listed explicitly; there is no stemming, so
// unseen paraphrases fall through to "normal".
var urgentPhrases = []string{
	"starke schmerzen",
	"starken schmerzen",
	"starker schmerz",
	"starke zahnschmerzen",
	"starken zahnschmerzen",
	"sehr starke",
	"notfall",
	"akut",
	"unerträglich",
	"unertraeglich",
	"sehr weh",
	"extrem weh",
	"extreme schmerzen",
	"geschwollen",
	"dick geworden",
	"abgebrochen",
	"rausgefallen",
	"blutet stark",
	"kann nicht schlafen",
	"pochende schmerzen",
	"pochenden schmerzen",
}

// ClassifyUrgency returns "akut" when any urgent indicator phrase occurs in
// the reason or the raw text, otherwise "normal". Pure substring search.
func ClassifyUrgency(reason, rawText string) string {
	haystack := strings.ToLower(reason + " " + rawText)
	for _, phrase := range urgentPhrases {
		if strings.Contains(haystack, phrase) {
			return UrgencyAcute
		}
	}
	return UrgencyNormal
}
