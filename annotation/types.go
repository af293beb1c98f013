// Package annotation holds the in-memory annotation store, its record
// types, and the validation applied before a record is admitted.
package annotation

import "time"

// Status is the annotation lifecycle state. It starts Open and moves to
// Resolved exactly once; nothing moves it back.
type Status string

const (
	StatusOpen     Status = "open"
	StatusResolved Status = "resolved"
)

// Confidence grades how likely a stored selector is to still match after
// the page changes. Anything the overlay sends that is not "stable" is
// treated as "fragile".
type Confidence string

const (
	ConfidenceStable  Confidence = "stable"
	ConfidenceFragile Confidence = "fragile"
)

// Viewport is the browser viewport size at annotation time.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ReactSource identifies the React component behind an annotated element.
// Present only when the overlay resolved a component name.
type ReactSource struct {
	Component string `json:"component"`
	Source    string `json:"source,omitempty"`
}

// Rect is an axis-aligned rectangle in viewport coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Point is a viewport coordinate pair.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Element describes one sub-element of a multi-element annotation.
type Element struct {
	Selector           string       `json:"selector"`
	SelectorConfidence Confidence   `json:"selectorConfidence"`
	ReactSource        *ReactSource `json:"reactSource,omitempty"`
	ElementRect        Rect         `json:"elementRect"`
}

// Annotation is a user-authored note pinned to a page element.
type Annotation struct {
	ID                 string       `json:"id"`
	URL                string       `json:"url"`
	Selector           string       `json:"selector"`
	SelectorConfidence Confidence   `json:"selectorConfidence"`
	Text               string       `json:"text"`
	Status             Status       `json:"status"`
	Viewport           Viewport     `json:"viewport"`
	ReactSource        *ReactSource `json:"reactSource,omitempty"`
	Screenshot         string       `json:"screenshot,omitempty"`
	Elements           []Element    `json:"elements,omitempty"`
	AnchorPoint        *Point       `json:"anchorPoint,omitempty"`
	CreatedAt          time.Time    `json:"createdAt"`
	UpdatedAt          time.Time    `json:"updatedAt"`
}

// clone returns a deep copy so callers never hold references into the store.
func (a *Annotation) clone() *Annotation {
	c := *a
	if a.ReactSource != nil {
		rs := *a.ReactSource
		c.ReactSource = &rs
	}
	if a.AnchorPoint != nil {
		p := *a.AnchorPoint
		c.AnchorPoint = &p
	}
	if a.Elements != nil {
		c.Elements = make([]Element, len(a.Elements))
		copy(c.Elements, a.Elements)
		for i := range c.Elements {
			if c.Elements[i].ReactSource != nil {
				rs := *c.Elements[i].ReactSource
				c.Elements[i].ReactSource = &rs
			}
		}
	}
	return &c
}
