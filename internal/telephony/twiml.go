package telephony

import (
	"bytes"
	"encoding/xml"
)

// TwiML is a minimal Twilio Markup Language response builder.
// Only include primitives we need at the adapter boundary.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

type twimlGather struct {
	XMLName             xml.Name `xml:"Gather"`
	Input               string   `xml:"input,attr"`
	Action              string   `xml:"action,attr"`
	Method              string   `xml:"method,attr"`
	Language            string   `xml:"language,attr,omitempty"`
	SpeechTimeout       string   `xml:"speechTimeout,attr,omitempty"`
	ActionOnEmptyResult bool     `xml:"actionOnEmptyResult,attr"`
	Say                 twimlSay
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

const fallbackTwiML = xml.Header + "<Response><Hangup></Hangup></Response>"

// TwiMLRenderer renders conversation steps as TwiML documents.
type TwiMLRenderer struct {
	Voice         string
	Language      string
	SpeechTimeout string
}

// NewTwiMLRenderer returns the Korean speech configuration used for care calls.
func NewTwiMLRenderer() TwiMLRenderer {
	return TwiMLRenderer{Voice: "Polly.Seoyeon", Language: "ko-KR", SpeechTimeout: "1"}
}

// RenderContinuation speaks message inside a speech Gather that posts to
// nextActionURL, including when nothing was said.
func (r TwiMLRenderer) RenderContinuation(message, nextActionURL string) string {
	return encodeTwiML(twimlResponse{Verbs: []any{
		twimlGather{
			Input:               "speech",
			Action:              nextActionURL,
			Method:              "POST",
			Language:            r.Language,
			SpeechTimeout:       r.SpeechTimeout,
			ActionOnEmptyResult: true,
			Say:                 twimlSay{Voice: r.Voice, Text: message},
		},
	}})
}

// RenderTermination speaks message and hangs up.
func (r TwiMLRenderer) RenderTermination(message string) string {
	return encodeTwiML(twimlResponse{Verbs: []any{
		twimlSay{Voice: r.Voice, Text: message},
		twimlHangup{},
	}})
}

func encodeTwiML(r twimlResponse) string {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fallbackTwiML
	}
	if err := enc.Flush(); err != nil {
		return fallbackTwiML
	}
	return buf.String()
}
