package intake

import (
	"fmt"
	"strings"
)

// SummaryMarker is the literal line the model is instructed to emit once all
// required slots are known. Its presence in a reply triggers lead parsing.
const SummaryMarker = "LEAD SUMMARY"

// fieldQuestions maps a missing slot to the natural-language description the
// model should ask for.
var fieldQuestions = map[string]string{
	FieldName:          "den vollständigen Namen des Anrufers",
	FieldPhone:         "die Telefonnummer, unter der die Praxis zurückrufen kann",
	FieldReason:        "den Grund des Anrufs bzw. die Beschwerden",
	FieldPreferredTime: "den Wunschtermin (Tag und Uhrzeit)",
}

// fieldLabels are the bullet labels for the already-collected section.
var fieldLabels = []struct {
	slot  string
	label string
}{
	{FieldName, "Name"},
	{FieldPhone, "Telefonnummer"},
	{FieldReason, "Grund"},
	{FieldPreferredTime, "Wunschtermin"},
}

// BuildSystemPrompt renders the system prompt for the next model turn. It is
// rebuilt every turn because the collected/missing sections change as memory
// accrues, and clinic data is re-read so staff edits apply mid-call.
func BuildSystemPrompt(clinicName, instructions string, memory Memory, missing []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Du bist die freundliche Telefonassistentin der Zahnarztpraxis %s.\n", clinicName)
	if strings.TrimSpace(instructions) != "" {
		b.WriteString("\nHinweise der Praxis:\n")
		b.WriteString(strings.TrimSpace(instructions))
		b.WriteString("\n")
	}

	collected := collectedBullets(memory)
	if len(collected) > 0 {
		b.WriteString("\nBereits bekannt (NICHT erneut erfragen):\n")
		for _, line := range collected {
			b.WriteString("- ")
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	if len(missing) > 0 {
		fmt.Fprintf(&b, "Frage als Nächstes ausschließlich nach: %s. Stelle keine weiteren Fragen in dieser Nachricht.\n", fieldQuestions[missing[0]])
	} else {
		b.WriteString("Alle Angaben sind vollständig. Bedanke dich kurz, kündige einen Rückruf der Praxis an und gib dann exakt diesen Block aus:\n\n")
		b.WriteString(SummaryMarker + "\n")
		fmt.Fprintf(&b, "Name: %s\n", memory.Name)
		fmt.Fprintf(&b, "Telefon: %s\n", memory.Phone)
		fmt.Fprintf(&b, "Grund: %s\n", memory.Reason)
		fmt.Fprintf(&b, "Wunschtermin: %s\n", memory.PreferredTime)
		b.WriteString("\nNach diesem Block beendest du deine Antwort sofort.\n")
	}

	b.WriteString(`
Verhaltensregeln:
- Antworte ausschließlich auf Deutsch, kurz und am Telefon gut verständlich.
- Erkläre niemals, dass du eine KI oder ein Computerprogramm bist.
- Stelle nie zweimal exakt dieselbe Frage; variiere die Formulierung.
- Erfinde keine freien Termine und sage keine Termine verbindlich zu.
- Bei akuten Schmerzen zeige Verständnis und signalisiere, dass die Praxis schnellstmöglich zurückruft.
`)

	return b.String()
}

func collectedBullets(m Memory) []string {
	var out []string
	for _, fl := range fieldLabels {
		if v := strings.TrimSpace(m.field(fl.slot)); v != "" {
			out = append(out, fl.label+": "+v)
		}
	}
	if m.Urgency != "" {
		out = append(out, "Dringlichkeit: "+m.Urgency)
	}
	if m.PatientType != "" {
		out = append(out, "Patientenstatus: "+m.PatientType)
	}
	return out
}
