package voice

import (
	"encoding/xml"
	"fmt"
)

const (
	sayLanguage    = "de-DE"
	gatherLanguage = "de-DE"
)

type twimlResponse struct {
	XMLName xml.Name     `xml:"Response"`
	Say     *twimlSay    `xml:"Say,omitempty"`
	Gather  *twimlGather `xml:"Gather,omitempty"`
}

type twimlSay struct {
	Language string `xml:"language,attr"`
	Text     string `xml:",chardata"`
}

type twimlGather struct {
	Input         string    `xml:"input,attr"`
	Language      string    `xml:"language,attr"`
	Action        string    `xml:"action,attr"`
	Method        string    `xml:"method,attr"`
	SpeechTimeout string    `xml:"speechTimeout,attr"`
	Say           *twimlSay `xml:"Say,omitempty"`
}

// RenderTwiML builds a voice response that speaks text and then listens for
// the caller's next utterance, posting it back to actionURL. The call stays
// open after every turn; only the caller ends it.
func RenderTwiML(text, actionURL string) ([]byte, error) {
	resp := twimlResponse{
		Gather: &twimlGather{
			Input:         "speech",
			Language:      gatherLanguage,
			Action:        actionURL,
			Method:        "POST",
			SpeechTimeout: "auto",
			Say: &twimlSay{
				Language: sayLanguage,
				Text:     text,
			},
		},
	}

	body, err := xml.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to render twiml: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}
