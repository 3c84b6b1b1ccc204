package sender

import (
	"bytes"
	"errors"
	"strings"

	"github.com/Adda-Baaj/north-relay/pkg/httpclient"

	"github.com/PuerkitoBio/goquery"
)

const maxSummaryBytes = 512

// Signal records why the last attempt produced no usable status code.
type Signal int

const (
	SignalNone Signal = iota
	SignalMalformed
	SignalTransport
)

// Classification is the per-attempt verdict.
type Classification struct {
	Retryable bool
	Signal    Signal
	Code      int
	Body      string
	Message   string
}

// Classify maps one transport result to a classification. Every status outside [200,399]
// is retryable, including 400; the distinction is only made once attempts run out.
func Classify(resp httpclient.Response, err error) Classification {
	if err != nil {
		var malformed *httpclient.MalformedRequestError
		if errors.As(err, &malformed) {
			return Classification{Retryable: true, Signal: SignalMalformed, Message: err.Error()}
		}
		return Classification{Retryable: true, Signal: SignalTransport, Message: err.Error()}
	}
	if resp == nil {
		return Classification{Retryable: true, Signal: SignalTransport, Message: "transport returned no response"}
	}

	code := resp.StatusCode()
	c := Classification{Code: code, Body: string(resp.Body())}
	if code >= 200 && code <= 399 {
		return c
	}
	c.Retryable = true
	return c
}

// Terminal turns the last failed classification into the outcome returned to the caller.
func Terminal(c Classification, attempts int) Outcome {
	out := Outcome{Code: c.Code, Attempts: attempts}
	switch {
	case c.Signal == SignalMalformed:
		out.Kind = KindClientProtocol
		out.Body = c.Message
		out.Message = c.Message
	case c.Signal == SignalTransport:
		out.Kind = KindTransport
		out.Message = c.Message
	case c.Code == 400:
		out.Kind = KindClientProtocol
		out.Body = c.Body
	case c.Code >= 401:
		out.Kind = KindServerOrAuth
		out.Body = c.Body
	default:
		out.Kind = KindUnclassified
		out.Body = c.Body
	}
	return out
}

// summarizeBody shortens a response body for error messages. HTML error pages are reduced to their text.
func summarizeBody(body string) string {
	body = strings.TrimSpace(body)
	if looksLikeHTML(body) {
		if text := htmlText(body); text != "" {
			body = text
		}
	}
	if len(body) > maxSummaryBytes {
		body = body[:maxSummaryBytes]
	}
	return body
}

func looksLikeHTML(body string) bool {
	head := strings.ToLower(body)
	if len(head) > 64 {
		head = head[:64]
	}
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html")
}

func htmlText(body string) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(body)))
	if err != nil {
		return ""
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	text := strings.Join(strings.Fields(doc.Find("body").First().Text()), " ")
	switch {
	case title != "" && text != "" && !strings.HasPrefix(text, title):
		return title + ": " + text
	case text != "":
		return text
	default:
		return title
	}
}
