package editor

// Position is a screen coordinate pair, used to anchor the ghost review
// panel. Captured once at activation, never tracked afterwards.
type Position struct {
	Top  float64 `json:"top"`
	Left float64 `json:"left"`
}

// Selection is the current editor selection as rune offsets into the
// serialized content. From == To means a collapsed cursor.
type Selection struct {
	From int    `json:"from"`
	To   int    `json:"to"`
	Text string `json:"text"`
}

// Surface is the narrow capability interface over the host's rich-text
// editor. The review logic only ever talks to this, so it can run
// against a snapshot or a mock just as well as a live editor.
type Surface interface {
	TextBefore(maxChars int) string
	Selection() Selection
	DeleteSelection()
	InsertTextAtCursor(text string)
	CursorScreenPosition() Position
	SerializedContent() string
	SetEditable(editable bool)
}

// Host receives the outcomes a document action produces: the new
// serialized content after an accept or rollback, and transient error
// banners.
type Host interface {
	ContentChanged(serialized string)
	ShowError(message string)
}

// SnapshotSurface is a Surface over a point-in-time copy of the editor
// content. The desktop frontend ships its state in the activation
// request; mutations happen on the snapshot and the result is handed
// back through Host.ContentChanged.
type SnapshotSurface struct {
	runes    []rune
	selFrom  int
	selTo    int
	cursor   int
	screen   Position
	editable bool
}

func NewSnapshotSurface(text string, sel Selection, screen Position) *SnapshotSurface {
	runes := []rune(text)
	from := clamp(sel.From, 0, len(runes))
	to := clamp(sel.To, from, len(runes))
	return &SnapshotSurface{
		runes:    runes,
		selFrom:  from,
		selTo:    to,
		cursor:   from,
		screen:   screen,
		editable: true,
	}
}

func (s *SnapshotSurface) TextBefore(maxChars int) string {
	before := s.runes[:s.cursor]
	if maxChars >= 0 && len(before) > maxChars {
		before = before[len(before)-maxChars:]
	}
	return string(before)
}

func (s *SnapshotSurface) Selection() Selection {
	return Selection{
		From: s.selFrom,
		To:   s.selTo,
		Text: string(s.runes[s.selFrom:s.selTo]),
	}
}

func (s *SnapshotSurface) DeleteSelection() {
	if s.selFrom == s.selTo {
		return
	}
	rest := make([]rune, 0, len(s.runes)-(s.selTo-s.selFrom))
	rest = append(rest, s.runes[:s.selFrom]...)
	rest = append(rest, s.runes[s.selTo:]...)
	s.runes = rest
	s.cursor = s.selFrom
	s.selTo = s.selFrom
}

func (s *SnapshotSurface) InsertTextAtCursor(text string) {
	insert := []rune(text)
	updated := make([]rune, 0, len(s.runes)+len(insert))
	updated = append(updated, s.runes[:s.cursor]...)
	updated = append(updated, insert...)
	updated = append(updated, s.runes[s.cursor:]...)
	s.runes = updated
	s.cursor += len(insert)
	s.selFrom = s.cursor
	s.selTo = s.cursor
}

func (s *SnapshotSurface) CursorScreenPosition() Position {
	return s.screen
}

func (s *SnapshotSurface) SerializedContent() string {
	return string(s.runes)
}

func (s *SnapshotSurface) SetEditable(editable bool) {
	s.editable = editable
}

// Editable reports the last SetEditable value; exposed for the API layer
// so the frontend can mirror the lock state.
func (s *SnapshotSurface) Editable() bool {
	return s.editable
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
