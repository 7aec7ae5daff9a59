package domain

import (
	"fmt"
	"math"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Rect is an axis-aligned bounding box with Min <= Max on both axes.
type Rect struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

type ElementKind string

const (
	KindFreehand  ElementKind = "freehand"
	KindRectangle ElementKind = "rectangle"
	KindEllipse   ElementKind = "ellipse"
)

// UnmarshalText accepts the tool names older clients send (pen, square,
// circle) and maps them onto the canonical kinds.
func (k *ElementKind) UnmarshalText(text []byte) error {
	switch s := string(text); s {
	case "pen":
		*k = KindFreehand
	case "square", "rect":
		*k = KindRectangle
	case "circle":
		*k = KindEllipse
	default:
		*k = ElementKind(s)
	}
	return nil
}

// Element is a non-text drawing. Freehand strokes carry Points; rectangles
// and ellipses carry the two corners the pointer went down and up at, in
// whatever order the user dragged them.
type Element struct {
	Type      ElementKind `json:"type"`
	Points    []Point     `json:"points,omitempty"`
	Start     *Point      `json:"start,omitempty"`
	End       *Point      `json:"end,omitempty"`
	Color     string      `json:"color"`
	Thickness float64     `json:"thickness,omitempty"`
}

func (e Element) Validate() error {
	if e.Color == "" {
		return fmt.Errorf("%w: color is required", ErrInvalidElement)
	}
	if !nonNegative(e.Thickness) {
		return fmt.Errorf("%w: thickness must be a non-negative number", ErrInvalidElement)
	}

	switch e.Type {
	case KindFreehand:
		if len(e.Points) == 0 {
			return fmt.Errorf("%w: freehand needs at least one point", ErrInvalidElement)
		}
		if e.Start != nil || e.End != nil {
			return fmt.Errorf("%w: freehand does not take corners", ErrInvalidElement)
		}
		for i, p := range e.Points {
			if !p.finite() {
				return fmt.Errorf("%w: point %d is not finite", ErrInvalidElement, i)
			}
		}
	case KindRectangle, KindEllipse:
		if e.Start == nil || e.End == nil {
			return fmt.Errorf("%w: %s needs start and end", ErrInvalidElement, e.Type)
		}
		if len(e.Points) > 0 {
			return fmt.Errorf("%w: %s does not take points", ErrInvalidElement, e.Type)
		}
		if !e.Start.finite() || !e.End.finite() {
			return fmt.Errorf("%w: corners must be finite", ErrInvalidElement)
		}
	case "":
		return fmt.Errorf("%w: type is required", ErrInvalidElement)
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidElement, e.Type)
	}
	return nil
}

// Bounds returns the element's bounding box. It must only be called on a
// validated element.
func (e Element) Bounds() Rect {
	var pts []Point
	switch e.Type {
	case KindFreehand:
		pts = e.Points
	default:
		pts = []Point{*e.Start, *e.End}
	}

	r := Rect{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		r.Min.X = math.Min(r.Min.X, p.X)
		r.Min.Y = math.Min(r.Min.Y, p.Y)
		r.Max.X = math.Max(r.Max.X, p.X)
		r.Max.Y = math.Max(r.Max.Y, p.Y)
	}
	return r
}

type TextLabel struct {
	ID       string  `json:"id"`
	Position Point   `json:"position"`
	Content  string  `json:"content"`
	Color    string  `json:"color"`
	FontSize float64 `json:"fontSize,omitempty"`
}

func (t TextLabel) Validate() error {
	switch {
	case t.ID == "":
		return fmt.Errorf("%w: id is required", ErrInvalidText)
	case t.Color == "":
		return fmt.Errorf("%w: color is required", ErrInvalidText)
	case !t.Position.finite():
		return fmt.Errorf("%w: position must be finite", ErrInvalidText)
	case !nonNegative(t.FontSize):
		return fmt.Errorf("%w: fontSize must be a non-negative number", ErrInvalidText)
	}
	return nil
}

func nonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
