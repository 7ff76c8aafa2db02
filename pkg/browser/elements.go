package browser

import (
	_ "embed"
	"fmt"
	"sync"
)

// analyzerScript is the page analysis function injected into every page to
// enumerate DOM nodes and flag the interactive ones. It evaluates to a
// single function taking an options object and returning
// {map: {id: node}, order: [id...]}, where each node carries tagName,
// isInteractive, attributes, children and xpath. The order array preserves
// the analyzer's natural enumeration, which the Go side cannot recover from
// the map alone.
//
//go:embed analyzer.js
var analyzerScript string

// AnalyzerOptions mirror the option object the analyzer script accepts.
type AnalyzerOptions struct {
	Highlight         bool
	FocusIndex        int
	ViewportExpansion int
	DebugMode         bool
}

// DefaultAnalyzerOptions matches the settings used for element extraction.
func DefaultAnalyzerOptions() AnalyzerOptions {
	return AnalyzerOptions{
		Highlight:         false,
		FocusIndex:        -1,
		ViewportExpansion: 100,
		DebugMode:         false,
	}
}

// Element is one interactive node found by the analyzer: a stable 1-based
// number, a short human-readable label, and the locator used to click it.
type Element struct {
	Number int
	Text   string
	xpath  string
}

// ElementIndex maps element numbers to locators for a single session. The
// whole mapping is replaced after every navigation or click; numbers from a
// prior analysis are invalid once a new one lands.
type ElementIndex struct {
	mu       sync.Mutex
	locators map[int]string
}

func newElementIndex() *ElementIndex {
	return &ElementIndex{locators: make(map[int]string)}
}

// Replace swaps in a fresh numbering, discarding the previous mapping.
func (x *ElementIndex) Replace(elements []Element) {
	locators := make(map[int]string, len(elements))
	for _, el := range elements {
		locators[el.Number] = el.xpath
	}
	x.mu.Lock()
	x.locators = locators
	x.mu.Unlock()
}

// Locator resolves an element number to its locator. Numbers outside 1..Len
// fail with an error naming the valid range; no browser call is made.
func (x *ElementIndex) Locator(number int) (string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	xpath, ok := x.locators[number]
	if !ok {
		if len(x.locators) == 0 {
			return "", fmt.Errorf("no elements available. Navigate to a page first")
		}
		return "", fmt.Errorf("invalid element number. Available: 1-%d", len(x.locators))
	}
	return xpath, nil
}

// Len returns the number of indexed elements.
func (x *ElementIndex) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.locators)
}

// pageEvaluator is the slice of playwright.Page that extraction needs.
type pageEvaluator interface {
	Evaluate(expression string, arg ...interface{}) (interface{}, error)
}

// extractElements runs the analyzer against the current page and returns
// the interactive elements in the analyzer's enumeration order, numbered
// from 1 with no gaps. An empty interactive set is an empty slice, not an
// error; an analyzer failure (e.g. a detached frame) is.
func extractElements(page pageEvaluator, opts AnalyzerOptions) ([]Element, error) {
	expr := fmt.Sprintf(`(() => {
		const analyzePage = %s;
		return analyzePage({
			doHighlightElements: %t,
			focusHighlightIndex: %d,
			viewportExpansion: %d,
			debugMode: %t
		});
	})()`, analyzerScript, opts.Highlight, opts.FocusIndex, opts.ViewportExpansion, opts.DebugMode)

	raw, err := page.Evaluate(expr)
	if err != nil {
		return nil, fmt.Errorf("page analysis failed: %w", err)
	}

	return buildElements(raw)
}

// buildElements filters the analyzer output down to interactive nodes and
// derives their display labels.
func buildElements(raw interface{}) ([]Element, error) {
	result, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected analyzer result type %T", raw)
	}
	nodes, ok := result["map"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("analyzer result missing node map")
	}
	order, ok := result["order"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("analyzer result missing enumeration order")
	}

	var elements []Element
	for _, rawID := range order {
		id := fmt.Sprintf("%v", rawID)
		node, ok := nodes[id].(map[string]interface{})
		if !ok {
			continue
		}
		if interactive, _ := node["isInteractive"].(bool); !interactive {
			continue
		}

		tag, _ := node["tagName"].(string)
		if tag == "" {
			tag = "element"
		}

		// href wins over class; class is clipped hard.
		detail := ""
		if attrs, ok := node["attributes"].(map[string]interface{}); ok {
			if href, _ := attrs["href"].(string); href != "" {
				detail = href
			} else if class, _ := attrs["class"].(string); class != "" {
				detail = truncate(class, 30)
			}
		}
		if detail != "" {
			detail = " → " + detail
		}

		text := ""
		if children, ok := node["children"].([]interface{}); ok && len(children) > 0 {
			childID := fmt.Sprintf("%v", children[0])
			if child, ok := nodes[childID].(map[string]interface{}); ok {
				if childType, _ := child["type"].(string); childType == "TEXT_NODE" {
					childText, _ := child["text"].(string)
					text = " | " + childText
				}
			}
		}

		xpath, _ := node["xpath"].(string)
		elements = append(elements, Element{
			Number: len(elements) + 1,
			Text:   truncate(tag+detail+text, 200),
			xpath:  xpath,
		})
	}

	return elements, nil
}

// links converts extracted elements to the wire representation.
func links(elements []Element) []Link {
	out := make([]Link, 0, len(elements))
	for _, el := range elements {
		out = append(out, Link{Number: el.Number, Text: el.Text})
	}
	return out
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
