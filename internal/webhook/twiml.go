package webhook

import "encoding/xml"

// holdSeconds keeps an unbridged call open so an operator can pick it up.
const holdSeconds = 600

type Response struct {
	XMLName xml.Name `xml:"Response"`
	Dial    *Dial    `xml:"Dial,omitempty"`
	Pause   *Pause   `xml:"Pause,omitempty"`
}

type Dial struct {
	AnswerOnBridge bool   `xml:"answerOnBridge,attr,omitempty"`
	Timeout        int    `xml:"timeout,attr,omitempty"`
	Sip            string `xml:"Sip"`
}

type Pause struct {
	Length int `xml:"length,attr"`
}

// BridgeResponse dials sipURI, or holds the line when no bridge is configured.
func BridgeResponse(sipURI string, timeoutSeconds float64) Response {
	if sipURI == "" {
		return Response{Pause: &Pause{Length: holdSeconds}}
	}
	return Response{Dial: &Dial{
		AnswerOnBridge: true,
		Timeout:        int(timeoutSeconds),
		Sip:            sipURI,
	}}
}
