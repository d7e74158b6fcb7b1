package sandbox

import (
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// DOM is a read-mostly document proxy backed by the composed preview
// document. Sandboxed scripts query it through the injected document object;
// writes are recorded as mutations rather than applied to the host.
type DOM struct {
	doc       *goquery.Document
	mu        sync.Mutex
	mutations []Mutation
}

// Mutation records an attribute write performed by sandboxed code.
type Mutation struct {
	Selector  string
	Attribute string
	Value     string
}

// NewDOM parses a composed document into a queryable proxy. Malformed markup
// never fails: the HTML parser recovers the way a browser would.
func NewDOM(document string) (*DOM, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return nil, err
	}
	return &DOM{doc: doc}, nil
}

// Query returns the selection matching a CSS selector.
func (d *DOM) Query(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// Mutations returns the attribute writes recorded so far.
func (d *DOM) Mutations() []Mutation {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Mutation{}, d.mutations...)
}

func (d *DOM) recordMutation(m Mutation) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mutations = append(d.mutations, m)
}

// elementProxy exposes one matched element to the sandbox as plain data plus
// accessor closures.
func (d *DOM) elementProxy(sel *goquery.Selection) map[string]interface{} {
	if sel.Length() == 0 {
		return nil
	}
	first := sel.First()
	selector := proxySelector(first)
	html, _ := first.Html()

	return map[string]interface{}{
		"tagName":     strings.ToUpper(goquery.NodeName(first)),
		"id":          first.AttrOr("id", ""),
		"className":   first.AttrOr("class", ""),
		"textContent": first.Text(),
		"innerHTML":   html,
		"getAttribute": func(name string) string {
			return first.AttrOr(name, "")
		},
		"setAttribute": func(name, value string) {
			first.SetAttr(name, value)
			d.recordMutation(Mutation{Selector: selector, Attribute: name, Value: value})
		},
	}
}

// proxySelector derives a stable selector for mutation records: id when
// present, otherwise the tag name.
func proxySelector(sel *goquery.Selection) string {
	if id, ok := sel.Attr("id"); ok && id != "" {
		return "#" + id
	}
	return goquery.NodeName(sel)
}
