package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElement_Validate(t *testing.T) {
	corner := func(x, y float64) *Point { return &Point{X: x, Y: y} }

	tests := []struct {
		name    string
		element Element
		wantErr bool
	}{
		{
			name:    "freehand",
			element: Element{Type: KindFreehand, Points: []Point{{X: 1, Y: 2}}, Color: "#000"},
		},
		{
			name:    "rectangle",
			element: Element{Type: KindRectangle, Start: corner(0, 0), End: corner(5, 5), Color: "#000", Thickness: 2},
		},
		{
			name:    "ellipse with reversed corners",
			element: Element{Type: KindEllipse, Start: corner(5, 5), End: corner(-1, 0), Color: "#000"},
		},
		{
			name:    "missing color",
			element: Element{Type: KindFreehand, Points: []Point{{X: 1, Y: 2}}},
			wantErr: true,
		},
		{
			name:    "freehand without points",
			element: Element{Type: KindFreehand, Color: "#000"},
			wantErr: true,
		},
		{
			name:    "freehand with corners",
			element: Element{Type: KindFreehand, Points: []Point{{}}, Start: corner(0, 0), Color: "#000"},
			wantErr: true,
		},
		{
			name:    "rectangle missing end",
			element: Element{Type: KindRectangle, Start: corner(0, 0), Color: "#000"},
			wantErr: true,
		},
		{
			name:    "non-finite point",
			element: Element{Type: KindFreehand, Points: []Point{{X: math.NaN()}}, Color: "#000"},
			wantErr: true,
		},
		{
			name:    "negative thickness",
			element: Element{Type: KindRectangle, Start: corner(0, 0), End: corner(1, 1), Color: "#000", Thickness: -1},
			wantErr: true,
		},
		{
			name:    "unknown type",
			element: Element{Type: "triangle", Color: "#000"},
			wantErr: true,
		},
		{
			name:    "missing type",
			element: Element{Color: "#000"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.element.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidElement)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestElement_Bounds(t *testing.T) {
	e := Element{Type: KindRectangle, Start: &Point{X: 10, Y: -2}, End: &Point{X: -4, Y: 8}, Color: "#000"}
	assert.Equal(t, Rect{Min: Point{X: -4, Y: -2}, Max: Point{X: 10, Y: 8}}, e.Bounds())

	f := Element{Type: KindFreehand, Points: []Point{{X: 3, Y: 3}, {X: 1, Y: 7}, {X: 5, Y: 0}}, Color: "#000"}
	assert.Equal(t, Rect{Min: Point{X: 1, Y: 0}, Max: Point{X: 5, Y: 7}}, f.Bounds())
}

func TestElement_DecodeAliases(t *testing.T) {
	tests := []struct {
		raw  string
		want ElementKind
	}{
		{raw: `{"type":"pen","points":[{"x":0,"y":0}],"color":"#000"}`, want: KindFreehand},
		{raw: `{"type":"square","start":{"x":0,"y":0},"end":{"x":1,"y":1},"color":"#000"}`, want: KindRectangle},
		{raw: `{"type":"circle","start":{"x":0,"y":0},"end":{"x":1,"y":1},"color":"#000"}`, want: KindEllipse},
		{raw: `{"type":"ellipse","start":{"x":0,"y":0},"end":{"x":1,"y":1},"color":"#000"}`, want: KindEllipse},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			var e Element
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &e))
			assert.Equal(t, tt.want, e.Type)
			assert.NoError(t, e.Validate())
		})
	}
}

func TestTextLabel_Validate(t *testing.T) {
	assert.NoError(t, TextLabel{ID: "t1", Content: "", Color: "#111"}.Validate())
	assert.ErrorIs(t, TextLabel{Color: "#111"}.Validate(), ErrInvalidText)
	assert.ErrorIs(t, TextLabel{ID: "t1"}.Validate(), ErrInvalidText)
	assert.ErrorIs(t, TextLabel{ID: "t1", Color: "#111", FontSize: math.Inf(1)}.Validate(), ErrInvalidText)
}

func TestOperation_Validate(t *testing.T) {
	assert.NoError(t, Undo().Validate())
	assert.NoError(t, Draw(stroke(1)).Validate())
	assert.ErrorIs(t, Operation{Kind: OpDraw}.Validate(), ErrInvalidElement)
	assert.ErrorIs(t, Operation{Kind: OpText}.Validate(), ErrInvalidText)
	assert.Error(t, Operation{Kind: "erase"}.Validate())
}
