package editor

import (
	"context"
	"strings"
	"sync"

	apperrors "jdnotes/errors"
	"jdnotes/llm"

	"go.uber.org/zap"
)

// State is the ghost review lifecycle: Inactive until a document action
// triggers, Streaming while chunks arrive, Reviewing once the stream
// finished and the user decides.
type State int

const (
	StateInactive State = iota
	StateStreaming
	StateReviewing
)

func (s State) String() string {
	switch s {
	case StateStreaming:
		return "streaming"
	case StateReviewing:
		return "reviewing"
	default:
		return "inactive"
	}
}

// Streamer is the slice of the stream client the controller needs.
type Streamer interface {
	Start(ctx context.Context, req llm.Request, cb llm.Callbacks) error
	Cancel()
}

// Events let the API layer forward stream progress to the frontend.
// All optional.
type Events struct {
	OnChunk  func(chunk string)
	OnFinish func(full string)
	OnError  func(message string)
}

// ActivateOptions carries the per-action context for a document action.
type ActivateOptions struct {
	NoteTitle    string
	Instruction  string // required for ActionCustom
	Language     string // ActionTranslate target
	Template     llm.TemplateKind
	ContextChars int // 0 means llm.DefaultContextChars
	Events       Events
}

// Snapshot is a read-only view of the review state for the UI.
type Snapshot struct {
	State         State
	Action        llm.ActionKind
	OriginalText  string
	GeneratedText string
	Position      Position
}

// DiffController drives the in-document ghost-text review: it owns the
// original (possibly deleted) text, the growing generated text, and the
// anchored display position. At most one review is active per document.
type DiffController struct {
	surface Surface
	host    Host
	client  Streamer
	lease   *SyncLease
	logger  *zap.Logger

	mu        sync.Mutex
	state     State
	action    llm.ActionKind
	original  string
	generated strings.Builder
	position  Position
}

func NewDiffController(surface Surface, host Host, client Streamer, lease *SyncLease, logger *zap.Logger) *DiffController {
	return &DiffController{
		surface: surface,
		host:    host,
		client:  client,
		lease:   lease,
		logger:  logger,
	}
}

// Activate starts a document action: captures the original text and the
// anchor position, removes the selection for replace-actions so the user
// sees the gap while generation runs, and kicks off the stream. Returns
// before any chunk arrives.
func (d *DiffController) Activate(ctx context.Context, action llm.ActionKind, opts ActivateOptions) error {
	contextChars := opts.ContextChars
	if contextChars <= 0 {
		contextChars = llm.DefaultContextChars
	}

	d.mu.Lock()
	if d.state != StateInactive {
		d.mu.Unlock()
		return apperrors.ErrGhostActive
	}

	sel := d.surface.Selection()
	preceding := d.surface.TextBefore(contextChars)
	if err := validateInput(action, sel.Text, preceding, opts.Instruction); err != nil {
		d.mu.Unlock()
		return err
	}

	req := llm.BuildPrompt(action, llm.PromptContext{
		NoteTitle:   opts.NoteTitle,
		Selection:   sel.Text,
		Preceding:   preceding,
		Instruction: opts.Instruction,
		Language:    opts.Language,
		Template:    opts.Template,
		MaxContext:  contextChars,
	})

	d.state = StateStreaming
	d.action = action
	d.original = sel.Text
	d.generated.Reset()
	d.position = d.surface.CursorScreenPosition()
	d.mu.Unlock()

	err := d.client.Start(ctx, req, llm.Callbacks{
		OnChunk:  func(chunk string) { d.accumulate(chunk, opts.Events) },
		OnFinish: func(full string) { d.finish(full, opts.Events) },
		OnError:  func(err error) { d.streamFailed(err, opts.Events) },
	})
	if err != nil {
		d.mu.Lock()
		d.state = StateInactive
		d.mu.Unlock()
		return err
	}

	if action.ReplacesSelection() && sel.Text != "" {
		d.surface.DeleteSelection()
	}
	d.surface.SetEditable(false)
	return nil
}

// Accept commits the generated text into the document and notifies the
// host with the new serialized content, under the sync lease.
func (d *DiffController) Accept() error {
	d.mu.Lock()
	switch d.state {
	case StateStreaming:
		d.mu.Unlock()
		return apperrors.ErrStreamActive
	case StateInactive:
		d.mu.Unlock()
		return apperrors.WrapError(apperrors.ErrInvalidInput, "no ghost review to accept")
	}
	text := d.generated.String()
	d.state = StateInactive
	d.generated.Reset()
	d.mu.Unlock()

	d.lease.Acquire()
	d.surface.InsertTextAtCursor(text)
	d.surface.SetEditable(true)
	d.host.ContentChanged(d.surface.SerializedContent())
	return nil
}

// Discard abandons the action, mid-stream or during review, and restores
// the pre-action document byte for byte.
func (d *DiffController) Discard() {
	d.client.Cancel()

	d.mu.Lock()
	if d.state == StateInactive {
		d.mu.Unlock()
		return
	}
	original := d.original
	d.state = StateInactive
	d.generated.Reset()
	d.mu.Unlock()

	d.restore(original)
}

// Close discards any active review; called when the host editor
// unmounts so the document is never left with a pending ghost.
func (d *DiffController) Close() {
	d.Discard()
}

// Snapshot returns the current review state for rendering.
func (d *DiffController) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Snapshot{
		State:         d.state,
		Action:        d.action,
		OriginalText:  d.original,
		GeneratedText: d.generated.String(),
		Position:      d.position,
	}
}

func (d *DiffController) accumulate(chunk string, events Events) {
	d.mu.Lock()
	if d.state != StateStreaming {
		d.mu.Unlock()
		return
	}
	d.generated.WriteString(chunk)
	d.mu.Unlock()

	if events.OnChunk != nil {
		events.OnChunk(chunk)
	}
}

func (d *DiffController) finish(full string, events Events) {
	d.mu.Lock()
	if d.state != StateStreaming {
		d.mu.Unlock()
		return
	}
	d.state = StateReviewing
	d.mu.Unlock()

	if events.OnFinish != nil {
		events.OnFinish(full)
	}
}

func (d *DiffController) streamFailed(err error, events Events) {
	d.mu.Lock()
	if d.state == StateInactive {
		d.mu.Unlock()
		return
	}
	original := d.original
	d.state = StateInactive
	d.generated.Reset()
	d.mu.Unlock()

	d.logger.Warn("Document action failed, rolling back", zap.Error(err))
	d.restore(original)
	d.host.ShowError(err.Error())
	if events.OnError != nil {
		events.OnError(err.Error())
	}
}

// restore re-inserts the original text at the anchor and runs the same
// content-change choreography as Accept.
func (d *DiffController) restore(original string) {
	d.lease.Acquire()
	if original != "" {
		d.surface.InsertTextAtCursor(original)
	}
	d.surface.SetEditable(true)
	d.host.ContentChanged(d.surface.SerializedContent())
}

func validateInput(action llm.ActionKind, selection, preceding, instruction string) error {
	switch action {
	case llm.ActionContinue:
		if strings.TrimSpace(preceding) == "" {
			return apperrors.ErrEmptyContext
		}
	case llm.ActionRefine, llm.ActionSummarize, llm.ActionTranslate:
		if strings.TrimSpace(selection) == "" {
			return apperrors.WrapError(apperrors.ErrInvalidInput, "no text selected")
		}
	case llm.ActionCustom:
		if strings.TrimSpace(instruction) == "" {
			return apperrors.WrapError(apperrors.ErrInvalidInput, "instruction is empty")
		}
		if strings.TrimSpace(selection) == "" && strings.TrimSpace(preceding) == "" {
			return apperrors.ErrEmptyContext
		}
	}
	return nil
}
