package domain

import (
	"maps"
	"slices"
	"time"
)

// MaxHistory caps both the undo and the redo stack of a board.
const MaxHistory = 50

// Snapshot is the full drawable content of a board at one instant. Once a
// Snapshot has been pushed onto a stack it is never modified in place.
type Snapshot struct {
	Drawings []Element            `json:"drawings"`
	Texts    map[string]TextLabel `json:"texts"`
}

func EmptySnapshot() Snapshot {
	return Snapshot{Drawings: []Element{}, Texts: map[string]TextLabel{}}
}

// Clone copies the containers. Elements themselves are treated as immutable.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Drawings: make([]Element, len(s.Drawings)),
		Texts:    make(map[string]TextLabel, len(s.Texts)),
	}
	copy(out.Drawings, s.Drawings)
	maps.Copy(out.Texts, s.Texts)
	return out
}

// BoardState is the authoritative record for one room. Its methods implement
// the undo/redo engine; callers serialize access.
type BoardState struct {
	RoomCode    string               `json:"roomCode"`
	Drawings    []Element            `json:"drawings"`
	Texts       map[string]TextLabel `json:"texts"`
	History     []Snapshot           `json:"history"`
	Future      []Snapshot           `json:"future"`
	LastUpdated time.Time            `json:"lastUpdated"`
}

func NewBoardState(roomCode string, now time.Time) *BoardState {
	return &BoardState{
		RoomCode:    roomCode,
		Drawings:    []Element{},
		Texts:       map[string]TextLabel{},
		History:     []Snapshot{},
		Future:      []Snapshot{},
		LastUpdated: now,
	}
}

// Normalize replaces nil containers left behind by decoders with empty ones.
func (b *BoardState) Normalize() {
	if b.Drawings == nil {
		b.Drawings = []Element{}
	}
	if b.Texts == nil {
		b.Texts = map[string]TextLabel{}
	}
	if b.History == nil {
		b.History = []Snapshot{}
	}
	if b.Future == nil {
		b.Future = []Snapshot{}
	}
	for i := range b.History {
		b.History[i] = b.History[i].Clone()
	}
	for i := range b.Future {
		b.Future[i] = b.Future[i].Clone()
	}
}

// Current returns a copy of the live drawings and texts.
func (b *BoardState) Current() Snapshot {
	return Snapshot{Drawings: b.Drawings, Texts: b.Texts}.Clone()
}

// Clone returns a state that can be mutated without affecting b. Stack
// entries are shared because they are immutable.
func (b *BoardState) Clone() *BoardState {
	cur := b.Current()
	return &BoardState{
		RoomCode:    b.RoomCode,
		Drawings:    cur.Drawings,
		Texts:       cur.Texts,
		History:     slices.Clone(b.History),
		Future:      slices.Clone(b.Future),
		LastUpdated: b.LastUpdated,
	}
}

func (b *BoardState) CanUndo() bool { return len(b.History) > 0 }
func (b *BoardState) CanRedo() bool { return len(b.Future) > 0 }

func (b *BoardState) AppendDrawing(e Element, now time.Time) {
	b.checkpoint()
	b.Drawings = append(b.Drawings, e)
	b.LastUpdated = now
}

func (b *BoardState) UpsertText(t TextLabel, now time.Time) {
	b.checkpoint()
	b.Texts[t.ID] = t
	b.LastUpdated = now
}

func (b *BoardState) Clear(now time.Time) Snapshot {
	b.checkpoint()
	b.restore(EmptySnapshot())
	b.LastUpdated = now
	return b.Current()
}

func (b *BoardState) Undo(now time.Time) (Snapshot, error) {
	if len(b.History) == 0 {
		return Snapshot{}, ErrNoHistory
	}
	b.Future = push(b.Future, b.Current())
	var prev Snapshot
	b.History, prev = pop(b.History)
	b.restore(prev)
	b.LastUpdated = now
	return b.Current(), nil
}

func (b *BoardState) Redo(now time.Time) (Snapshot, error) {
	if len(b.Future) == 0 {
		return Snapshot{}, ErrNoFuture
	}
	b.History = push(b.History, b.Current())
	var next Snapshot
	b.Future, next = pop(b.Future)
	b.restore(next)
	b.LastUpdated = now
	return b.Current(), nil
}

// checkpoint records the current content for undo and discards the redo
// branch, as every non-undo/redo mutation must.
func (b *BoardState) checkpoint() {
	b.History = push(b.History, b.Current())
	b.Future = b.Future[:0]
}

func (b *BoardState) restore(s Snapshot) {
	s = s.Clone()
	b.Drawings = s.Drawings
	b.Texts = s.Texts
}

func push(stack []Snapshot, s Snapshot) []Snapshot {
	if over := len(stack) - MaxHistory + 1; over > 0 {
		stack = slices.Delete(stack, 0, over)
	}
	return append(stack, s)
}

func pop(stack []Snapshot) ([]Snapshot, Snapshot) {
	last := len(stack) - 1
	s := stack[last]
	stack[last] = Snapshot{}
	return stack[:last], s
}
