package tibia

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Tibia serves this title while the site is down for its daily save or
// longer maintenance windows; the body carries no usable content then.
const maintenanceTitle = "Tibia - Free Multiplayer Online Role Playing Game - Maintenance"

var (
	// ErrMalformedDocument means the body could not be interpreted as
	// markup at all. Tolerant parsing recovers from nearly everything,
	// so seeing this is itself noteworthy.
	ErrMalformedDocument = errors.New("malformed document")

	// ErrMaintenance means the site answered with its maintenance page.
	ErrMaintenance = errors.New("tibia.com is undergoing maintenance")
)

// ContainerNotFoundError means the page loaded but the element the
// extractor anchors on is gone: the strongest signal that the upstream
// markup changed shape.
type ContainerNotFoundError struct {
	Anchor string
}

func (e *ContainerNotFoundError) Error() string {
	return fmt.Sprintf("container not found: %s", e.Anchor)
}

// NotFoundError means the page loaded but describes a different resource
// than was requested. Tibia answers HTTP 200 for unknown towns and
// worlds, so this has to be detected from the content.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s", e.Resource)
}

// Page is a loaded community page. It knows the site's page chrome
// (main content block, maintenance title) but nothing about what any
// particular subtopic means.
type Page struct {
	doc *goquery.Document
}

func NewPage(body []byte) (*Page, error) {
	// html.Parse recovers from broken markup the way browsers do, so a
	// parse failure here means the bytes are not markup at all.
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	doc := goquery.NewDocumentFromNode(root)
	if strings.TrimSpace(doc.Find("title").First().Text()) == maintenanceTitle {
		return nil, ErrMaintenance
	}
	return &Page{doc: doc}, nil
}

// MainContent returns the page's content block, the root every
// subtopic extractor anchors under.
func (p *Page) MainContent() (*goquery.Selection, error) {
	sel := p.doc.Find(".main-content").First()
	if sel.Length() == 0 {
		return nil, &ContainerNotFoundError{Anchor: ".main-content"}
	}
	return sel, nil
}

// HeaderText returns the cleaned text of the content header (the .Text
// element), empty if the page has none.
func (p *Page) HeaderText() string {
	mc, err := p.MainContent()
	if err != nil {
		return ""
	}
	return CleanText(mc.Find(".Text").First().Text())
}

var innerWhitespace = regexp.MustCompile(`\s+`)

// CleanText collapses runs of whitespace (including the non-breaking
// spaces tibia.com pads cells with) into single spaces and trims.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	s = innerWhitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
