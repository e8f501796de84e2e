// Package htmlblocks splits an HTML page into selector-addressed content blocks.
package htmlblocks

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/ersonp/pagewatch/internal/domain/entities"
)

const (
	minMainTextLen    = 40
	minSectionTextLen = 20
)

var (
	boilerplateSelectors = []string{
		"nav", "footer", "header", "script", "style", "noscript",
		"[role='navigation']", ".cookie", "#cookie", "[aria-label*='cookie']",
	}

	mainSelectors = []string{"main", "article", "section[role='main']"}

	sectionSelectors = []string{
		"#pricing, .pricing, section[id*='pricing'], section[class*='pricing']",
		"#features, .features, section[id*='feature'], section[class*='feature']",
		"#changelog, .changelog, section[id*='changelog'], section[class*='changelog']",
		"ul li, ol li",
	}

	releaseHeadingTerms = []string{"changelog", "release", "what's new", "updates", "release notes"}
)

// Extractor implements ports.BlockExtractor with goquery.
type Extractor struct{}

// New creates a new Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract returns the page's meaningful blocks in extraction order, one per selector.
// Unparsable input yields no blocks.
func (e *Extractor) Extract(page string) []entities.ContentBlock {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil
	}

	for _, sel := range boilerplateSelectors {
		doc.Find(sel).Remove()
	}

	c := &collector{seen: make(map[string]struct{})}

	doc.Find("h1, h2, h3").Each(func(_ int, s *goquery.Selection) {
		c.add(s, 0)
	})

	for _, sel := range mainSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			c.add(s, minMainTextLen)
		})
	}

	for _, sel := range sectionSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			c.add(s, minSectionTextLen)
		})
	}

	doc.Find("section").Each(func(_ int, s *goquery.Selection) {
		heading := strings.ToLower(nodeText(s.Find("h1, h2, h3").First()))
		if heading == "" {
			return
		}
		for _, term := range releaseHeadingTerms {
			if strings.Contains(heading, term) {
				c.add(s, minSectionTextLen)
				return
			}
		}
	})

	return c.blocks
}

// collector accumulates blocks, keeping the first block seen for each selector.
type collector struct {
	blocks []entities.ContentBlock
	seen   map[string]struct{}
}

func (c *collector) add(s *goquery.Selection, minLen int) {
	text := nodeText(s)
	if text == "" || utf8.RuneCountInString(text) <= minLen {
		return
	}

	selector := buildSelector(s.Get(0))
	if _, dup := c.seen[selector]; dup {
		return
	}
	c.seen[selector] = struct{}{}
	c.blocks = append(c.blocks, entities.ContentBlock{Selector: selector, Text: text})
}

// nodeText joins the trimmed text nodes under s with single spaces.
func nodeText(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}

	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(s.Get(0))

	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// buildSelector renders the element path from the root, e.g.
// "html > body > section#pricing.grid.wide > ul > li".
func buildSelector(n *html.Node) string {
	var segs []string
	for node := n; node != nil && node.Type == html.ElementNode; node = node.Parent {
		segs = append(segs, segment(node))
	}

	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}
	return strings.Join(segs, " > ")
}

func segment(n *html.Node) string {
	var id, class string
	for _, attr := range n.Attr {
		switch attr.Key {
		case "id":
			id = attr.Val
		case "class":
			class = attr.Val
		}
	}

	seg := n.Data
	if id != "" {
		seg += "#" + id
	}
	if classes := strings.Fields(class); len(classes) > 0 {
		seg += "." + strings.Join(classes, ".")
	}
	return seg
}
