// Package twiml builds the minimal subset of Twilio voice markup the dialog
// loop emits: Say, Play, Redirect, and speech Gather.
package twiml

import (
	"encoding/xml"
	"fmt"
)

type Say struct {
	XMLName xml.Name `xml:"Say"`
	Text    string   `xml:",chardata"`
}

type Play struct {
	XMLName xml.Name `xml:"Play"`
	URL     string   `xml:",chardata"`
}

type Redirect struct {
	XMLName xml.Name `xml:"Redirect"`
	Method  string   `xml:"method,attr,omitempty"`
	URL     string   `xml:",chardata"`
}

type Gather struct {
	XMLName       xml.Name `xml:"Gather"`
	Input         string   `xml:"input,attr"`
	Action        string   `xml:"action,attr"`
	Method        string   `xml:"method,attr"`
	Timeout       int      `xml:"timeout,attr"`
	SpeechTimeout string   `xml:"speechTimeout,attr"`
	Say           *Say     `xml:"Say,omitempty"`
}

// Response is one outbound TwiML document. Verbs execute in append order.
type Response struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any
}

func New() *Response { return &Response{} }

func (r *Response) Say(text string) *Response {
	r.Verbs = append(r.Verbs, Say{Text: text})
	return r
}

func (r *Response) Play(url string) *Response {
	r.Verbs = append(r.Verbs, Play{URL: url})
	return r
}

func (r *Response) Redirect(url, method string) *Response {
	r.Verbs = append(r.Verbs, Redirect{URL: url, Method: method})
	return r
}

func (r *Response) Gather(g Gather) *Response {
	r.Verbs = append(r.Verbs, g)
	return r
}

// Render serializes the document with the XML declaration Twilio expects.
func (r *Response) Render() (string, error) {
	body, err := xml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal twiml: %w", err)
	}
	return xml.Header + string(body), nil
}
