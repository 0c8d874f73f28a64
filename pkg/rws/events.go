package rws

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
)

// Event classes pushed by the controller.
const (
	ClassRapidData   = "rap-data-ev"
	ClassSignalState = "ios-signalstate-ev"
)

// eventDoc is the XHTML document carried by one websocket message.
type eventDoc struct {
	Items []eventItem `xml:"body>div>ul>li"`
}

type eventItem struct {
	Class string      `xml:"class,attr"`
	Title string      `xml:"title,attr"`
	Links []eventLink `xml:"a"`
	Spans []eventSpan `xml:"span"`
}

type eventLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

type eventSpan struct {
	Class string `xml:"class,attr"`
	Value string `xml:",chardata"`
}

// event is a decoded push item.
type event struct {
	Class    string
	Resource string
	Values   map[string]string
}

// parseEvents decodes a websocket message into its push items.
func parseEvents(data []byte) ([]event, error) {
	var doc eventDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: event document: %v", ErrUnexpectedPayload, err)
	}

	events := make([]event, 0, len(doc.Items))
	for _, item := range doc.Items {
		ev := event{Class: item.Class, Values: make(map[string]string, len(item.Spans))}
		for _, link := range item.Links {
			if link.Rel == "self" || ev.Resource == "" {
				ev.Resource = normalizeResource(link.Href)
			}
		}
		for _, span := range item.Spans {
			ev.Values[span.Class] = strings.TrimSpace(span.Value)
		}
		if ev.Resource == "" {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// normalizeResource reduces an absolute or relative href to its path,
// keeping the ;value/;state suffix.
func normalizeResource(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	p := u.EscapedPath()
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// resourceBase strips the ;suffix from a resource path.
func resourceBase(resource string) string {
	if i := strings.IndexByte(resource, ';'); i >= 0 {
		return resource[:i]
	}
	return resource
}
