package intake

import (
	"regexp"
	"strings"
)

// SlotMatcher attempts to fill one memory slot from conversation text.
// Matchers never fail; an unmatched slot is simply left unset. They run in
// list order, so reordering or adding matchers needs no other changes.
type SlotMatcher interface {
	Slot() string
	Extract(text, lower string, m *Memory)
}

// DefaultMatchers returns the matcher cascade in evaluation order.
func DefaultMatchers() []SlotMatcher {
	return []SlotMatcher{
		nameMatcher{},
		phoneMatcher{},
		reasonMatcher{},
		timeMatcher{},
		patientTypeMatcher{},
	}
}

// ExtractMemory runs the default matcher cascade over the transcript and
// returns a best-effort slot record. Absent matches leave slots empty.
func ExtractMemory(text string) Memory {
	return runMatchers(text, DefaultMatchers())
}

func runMatchers(text string, matchers []SlotMatcher) Memory {
	var m Memory
	lower := strings.ToLower(text)
	for _, matcher := range matchers {
		matcher.Extract(text, lower, &m)
	}
	return m
}

// ---------- name ----------

// namePatterns capture self-introductions. German speech transcripts
// capitalize proper names, so the captures require capitalized words, which
// keeps phrases like "ich bin am Montag frei" from matching.
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:[Ii]ch heiße|[Ii]ch heisse|[Mm]ein [Nn]ame ist|[Hh]ier ist|[Hh]ier spricht)\s+([A-ZÄÖÜ][A-Za-zÄÖÜäöüß\-]*(?:\s+[A-ZÄÖÜ][A-Za-zÄÖÜäöüß\-]*){0,2})`),
	regexp.MustCompile(`(?:[Ii]ch bin)\s+([A-ZÄÖÜ][A-Za-zÄÖÜäöüß\-]*(?:\s+[A-ZÄÖÜ][A-Za-zÄÖÜäöüß\-]*){0,2})`),
	regexp.MustCompile(`[Nn]ame:\s*([A-ZÄÖÜ][A-Za-zÄÖÜäöüß\-]*(?:\s+[A-ZÄÖÜ][A-Za-zÄÖÜäöüß\-]*){0,2})`),
}

// nameConnectors are trailing words that belong to the sentence, not the name.
var nameConnectors = map[string]struct{}{
	"und": {}, "aber": {}, "danke": {}, "hallo": {}, "guten": {},
}

type nameMatcher struct{}

func (nameMatcher) Slot() string { return FieldName }

func (nameMatcher) Extract(text, lower string, m *Memory) {
	for _, re := range namePatterns {
		match := re.FindStringSubmatch(text)
		if len(match) < 2 {
			continue
		}
		words := strings.Fields(match[1])
		for len(words) > 0 {
			if _, ok := nameConnectors[strings.ToLower(words[len(words)-1])]; !ok {
				break
			}
			words = words[:len(words)-1]
		}
		if len(words) == 0 {
			continue
		}
		m.Name = strings.Join(words, " ")
		return
	}
}

// ---------- phone ----------

var phoneRE = regexp.MustCompile(`(\+49[\d\s/\-]{6,}|\b0\d[\d\s/\-]{5,})`)

type phoneMatcher struct{}

func (phoneMatcher) Slot() string { return FieldPhone }

func (phoneMatcher) Extract(text, lower string, m *Memory) {
	match := phoneRE.FindString(text)
	if match == "" {
		return
	}
	match = strings.Trim(match, " /-")
	if digitCount(match) < 7 {
		return
	}
	m.Phone = match
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// ---------- reason + urgency (coupled) ----------

var (
	painKeywordRE = regexp.MustCompile(`zahnschmerzen|schmerzen|tut\s+[a-zäöüß\s]*weh|weh\s*tut|notfall|abgebrochen|geschwollen|entzündet|entzuendet|blutet|rausgefallen`)
	painClauseRE  = regexp.MustCompile(`([a-zäöüß\s]*(?:zahnschmerzen|schmerzen|tut\s+[a-zäöüß\s]*weh|notfall|abgebrochen|geschwollen|entzündet|blutet|rausgefallen)[a-zäöüß\s]*)`)

	routineClauseRE = regexp.MustCompile(`([a-zäöüß\s\-]*(?:kontrolltermin|kontrolle|professionelle zahnreinigung|zahnreinigung|prophylaxe|vorsorge|bleaching|füllung|fuellung|krone|implantat|beratung|check-up|checkup)[a-zäöüß\s\-]*)`)
)

type reasonMatcher struct{}

func (reasonMatcher) Slot() string { return FieldReason }

// Extract runs two independent passes: one for the reason clause and one for
// the urgency flag. A pain keyword anywhere marks the conversation "akut"
// even when no clean reason clause was captured.
func (reasonMatcher) Extract(text, lower string, m *Memory) {
	if match := painClauseRE.FindStringSubmatch(lower); len(match) > 1 {
		if clause := tidyClause(match[1]); clause != "" {
			m.Reason = clause
			m.Urgency = UrgencyAcute
		}
	} else if match := routineClauseRE.FindStringSubmatch(lower); len(match) > 1 {
		if clause := tidyClause(match[1]); clause != "" {
			m.Reason = clause
		}
	}

	if m.Urgency == "" {
		if painKeywordRE.MatchString(lower) || ClassifyUrgency("", lower) == UrgencyAcute {
			m.Urgency = UrgencyAcute
		}
	}
}

// tidyClause trims filler the clause regexes drag in from sentence starts.
func tidyClause(clause string) string {
	clause = strings.TrimSpace(clause)
	fillers := []string{
		"ich habe seit", "ich habe", "ich hab", "habe seit", "habe", "hab",
		"ich möchte gerne", "ich möchte", "möchte gerne", "möchte",
		"ich brauche", "brauche", "es geht um", "geht um", "es geht",
		"einen", "eine", "gerne", "bitte", "mit", "wegen", "also", "ja",
	}
	for changed := true; changed; {
		changed = false
		for _, f := range fillers {
			if strings.HasPrefix(clause, f+" ") {
				clause = strings.TrimSpace(strings.TrimPrefix(clause, f+" "))
				changed = true
			}
		}
	}
	return clause
}

// ---------- preferred time ----------

const dateWordAlt = `heute|übermorgen|uebermorgen|morgen|montag|dienstag|mittwoch|donnerstag|freitag|samstag|sonntag|nächste woche|naechste woche|in \d+ tagen|\d{1,2}\.\d{1,2}\.?`

var (
	timeIntentRE = regexp.MustCompile(`(?:termin|vorbeikommen|vorbei kommen|kommen|passt|passen|hätte gern(?:e)?|haette gern(?:e)?|möchte|moechte|wunschtermin)[^.!?]*?\b((?:` + dateWordAlt + `)(?:\s+(?:um\s+)?\d{1,2}(?::\d{2})?\s*uhr)?(?:\s+(?:vormittag|vormittags|nachmittag|nachmittags|früh|frueh|abends))?)`)
	bareDateRE   = regexp.MustCompile(`\b((?:` + dateWordAlt + `)(?:\s+(?:um\s+)?\d{1,2}(?::\d{2})?\s*uhr)?(?:\s+(?:vormittag|vormittags|nachmittag|nachmittags|früh|frueh|abends))?)`)
)

type timeMatcher struct{}

func (timeMatcher) Slot() string { return FieldPreferredTime }

func (timeMatcher) Extract(text, lower string, m *Memory) {
	// "Guten Morgen" would otherwise read as a date word.
	lower = strings.ReplaceAll(lower, "guten morgen", "")

	if match := timeIntentRE.FindStringSubmatch(lower); len(match) > 1 {
		m.PreferredTime = strings.TrimSpace(match[1])
		return
	}
	if match := bareDateRE.FindStringSubmatch(lower); len(match) > 1 {
		m.PreferredTime = strings.TrimSpace(match[1])
	}
}

// ---------- patient type ----------

var (
	newPatientPhrases = []string{
		"zum ersten mal",
		"das erste mal",
		"neuer patient",
		"neue patientin",
		"neupatient",
		"noch nie bei ihnen",
		"noch kein patient",
		"bin neu",
	}
	existingPatientPhrases = []string{
		"schon mal bei ihnen",
		"schon einmal bei ihnen",
		"bereits patient",
		"bereits patientin",
		"bin patient bei ihnen",
		"bin patientin bei ihnen",
		"bestandspatient",
		"schon patient",
		"war schon bei ihnen",
		"bin bei ihnen in behandlung",
	}
)

type patientTypeMatcher struct{}

func (patientTypeMatcher) Slot() string { return "patientType" }

func (patientTypeMatcher) Extract(text, lower string, m *Memory) {
	for _, p := range existingPatientPhrases {
		if strings.Contains(lower, p) {
			m.PatientType = "bestand"
			return
		}
	}
	for _, p := range newPatientPhrases {
		if strings.Contains(lower, p) {
			m.PatientType = "neu"
			return
		}
	}
}
