package domain

import "fmt"

type OpKind string

const (
	OpDraw  OpKind = "draw"
	OpText  OpKind = "text"
	OpUndo  OpKind = "undo"
	OpRedo  OpKind = "redo"
	OpClear OpKind = "clear_board"
)

// Operation is a mutating request for one room.
type Operation struct {
	Kind      OpKind
	Element   *Element
	TextLabel *TextLabel
}

func Draw(e Element) Operation { return Operation{Kind: OpDraw, Element: &e} }
func Text(t TextLabel) Operation { return Operation{Kind: OpText, TextLabel: &t} }
func Undo() Operation { return Operation{Kind: OpUndo} }
func Redo() Operation { return Operation{Kind: OpRedo} }
func Clear() Operation { return Operation{Kind: OpClear} }

func (o Operation) Validate() error {
	switch o.Kind {
	case OpDraw:
		if o.Element == nil {
			return fmt.Errorf("%w: element is required", ErrInvalidElement)
		}
		return o.Element.Validate()
	case OpText:
		if o.TextLabel == nil {
			return fmt.Errorf("%w: textLabel is required", ErrInvalidText)
		}
		return o.TextLabel.Validate()
	case OpUndo, OpRedo, OpClear:
		return nil
	}
	return fmt.Errorf("unknown operation %q", o.Kind)
}

type EffectKind int

const (
	// EffectRelay carries a single element or text label for everyone but
	// the originator.
	EffectRelay EffectKind = iota + 1
	// EffectSnapshot replaces the board for every member, originator included.
	EffectSnapshot
	// EffectRejected is reported to the requester only.
	EffectRejected
)

func (k EffectKind) String() string {
	switch k {
	case EffectRelay:
		return "relay"
	case EffectSnapshot:
		return "snapshot"
	case EffectRejected:
		return "rejected"
	}
	return "unknown"
}

type Effect struct {
	Kind      EffectKind
	Element   *Element
	TextLabel *TextLabel
	Snapshot  Snapshot
	Reason    string
}

func Rejected(reason string) Effect {
	return Effect{Kind: EffectRejected, Reason: reason}
}

// Broadcast reports whether the effect is delivered to other members.
func (e Effect) Broadcast() bool {
	return e.Kind == EffectRelay || e.Kind == EffectSnapshot
}
