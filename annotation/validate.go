package annotation

import (
	"fmt"
	"math"
)

// Field-level ceilings applied before a draft becomes a record.
const (
	MaxTextLen     = 10240
	MaxSelectorLen = 2048
	MaxViewportDim = 100000
)

// ValidationError is a field constraint violation. The message names the
// offending field and is safe to return to the overlay verbatim.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalidf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// Draft is the loosely-typed create payload as decoded off the wire. It is
// never stored: Validate either produces a fully-formed Annotation or
// rejects, so nothing partially checked reaches the store.
type Draft struct {
	URL                any            `json:"url"`
	Selector           string         `json:"selector"`
	SelectorConfidence string         `json:"selectorConfidence"`
	Text               string         `json:"text"`
	Viewport           Viewport       `json:"viewport"`
	ReactSource        *DraftSource   `json:"reactSource"`
	Elements           []DraftElement `json:"elements"`
	AnchorPoint        *Point         `json:"anchorPoint"`
}

// DraftSource is the loose reactSource payload.
type DraftSource struct {
	Component string `json:"component"`
	Source    string `json:"source"`
}

// DraftElement is the loose per-element payload.
type DraftElement struct {
	Selector           string       `json:"selector"`
	SelectorConfidence string       `json:"selectorConfidence"`
	ReactSource        *DraftSource `json:"reactSource"`
	ElementRect        Rect         `json:"elementRect"`
}

// confidence normalizes a wire value: "stable" passes, everything else
// (including the empty string and unknown values) degrades to fragile.
func confidence(s string) Confidence {
	if s == string(ConfidenceStable) {
		return ConfidenceStable
	}
	return ConfidenceFragile
}

// source converts a loose reactSource, dropping it entirely when no
// component name was supplied. A half-empty object is never stored.
func source(d *DraftSource) *ReactSource {
	if d == nil || d.Component == "" {
		return nil
	}
	return &ReactSource{Component: d.Component, Source: d.Source}
}

func validDimension(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0 && v <= MaxViewportDim
}

// Validate checks every field constraint on d and, when all pass, returns
// the typed parts of a new record. No check mutates anything: either the
// whole draft is admissible or the first violation is reported.
func Validate(d Draft) (*Annotation, error) {
	if len(d.Text) > MaxTextLen {
		return nil, invalidf("text", "Text exceeds maximum length of %d characters", MaxTextLen)
	}
	if len(d.Selector) > MaxSelectorLen {
		return nil, invalidf("selector", "Selector exceeds maximum length of %d characters", MaxSelectorLen)
	}
	for _, el := range d.Elements {
		if len(el.Selector) > MaxSelectorLen {
			return nil, invalidf("selector", "Selector exceeds maximum length of %d characters", MaxSelectorLen)
		}
	}
	if !validDimension(d.Viewport.Width) || !validDimension(d.Viewport.Height) {
		return nil, invalidf("viewport", "Invalid viewport dimensions")
	}

	urlStr := ""
	if d.URL != nil {
		s, ok := d.URL.(string)
		if !ok {
			return nil, invalidf("url", "Invalid URL: must be a string")
		}
		urlStr = s
	}

	a := &Annotation{
		URL:                urlStr,
		Selector:           d.Selector,
		SelectorConfidence: confidence(d.SelectorConfidence),
		Text:               d.Text,
		Status:             StatusOpen,
		Viewport:           d.Viewport,
		ReactSource:        source(d.ReactSource),
		AnchorPoint:        d.AnchorPoint,
	}
	if len(d.Elements) > 0 {
		a.Elements = make([]Element, len(d.Elements))
		for i, el := range d.Elements {
			a.Elements[i] = Element{
				Selector:           el.Selector,
				SelectorConfidence: confidence(el.SelectorConfidence),
				ReactSource:        source(el.ReactSource),
				ElementRect:        el.ElementRect,
			}
		}
	}
	return a, nil
}
