package llm

import (
	"fmt"
	"strings"
)

// ActionKind identifies a document AI action.
type ActionKind string

const (
	ActionRefine    ActionKind = "refine"
	ActionSummarize ActionKind = "summarize"
	ActionTranslate ActionKind = "translate"
	ActionContinue  ActionKind = "continue"
	ActionCustom    ActionKind = "custom"
	ActionTemplate  ActionKind = "template"
)

// TemplateKind selects one of the fixed generation templates.
type TemplateKind string

const (
	TemplateMeeting    TemplateKind = "meeting"
	TemplateBrainstorm TemplateKind = "brainstorm"
	TemplateCode       TemplateKind = "code"
)

// DefaultContextChars bounds how much surrounding note text is injected
// into the system prompt.
const DefaultContextChars = 400

// PromptContext carries the optional grounding for a document action.
type PromptContext struct {
	NoteTitle   string
	Selection   string // selected text, empty for insertion actions
	Preceding   string // trailing window of text before the cursor
	Instruction string // free-form instruction for ActionCustom
	Language    string // target language for ActionTranslate
	Template    TemplateKind
	MaxContext  int // 0 means DefaultContextChars
}

// Request is a single prompt pair sent to the model endpoint.
type Request struct {
	System string
	User   string
}

// ReplacesSelection reports whether the action rewrites the current
// selection (as opposed to inserting new text at the cursor).
func (a ActionKind) ReplacesSelection() bool {
	switch a {
	case ActionRefine, ActionSummarize, ActionTranslate, ActionCustom:
		return true
	}
	return false
}

// BuildPrompt maps an action and its context to a system/user prompt
// pair. Pure function, no side effects.
func BuildPrompt(action ActionKind, pctx PromptContext) Request {
	var system, user string

	switch action {
	case ActionRefine:
		system = refineSystemPrompt
		user = pctx.Selection
	case ActionSummarize:
		system = summarizeSystemPrompt
		user = pctx.Selection
	case ActionTranslate:
		language := pctx.Language
		if language == "" {
			language = "English"
		}
		system = fmt.Sprintf(translateSystemPrompt, language)
		user = pctx.Selection
	case ActionContinue:
		system = continueSystemPrompt
		user = pctx.Preceding
	case ActionCustom:
		system = fmt.Sprintf(customSystemPrompt, pctx.Instruction)
		user = pctx.Selection
		if user == "" {
			user = pctx.Preceding
		}
	case ActionTemplate:
		switch pctx.Template {
		case TemplateBrainstorm:
			system = brainstormTemplatePrompt
		case TemplateCode:
			system = codeTemplatePrompt
		default:
			system = meetingTemplatePrompt
		}
		user = templateUserMessage(pctx)
	default:
		// Unknown kinds behave like refine rather than leaking an
		// unexpanded prompt template.
		system = refineSystemPrompt
		user = pctx.Selection
	}

	system = injectContext(system, action, pctx)
	return Request{System: system, User: user}
}

// BuildChatPrompt produces the prompt pair for the note chat flow.
func BuildChatPrompt(noteTitle, userText string) Request {
	system := chatSystemPrompt
	if noteTitle != "" {
		system += "\n\nThe note being discussed is titled: " + noteTitle
	}
	return Request{System: system, User: userText}
}

func templateUserMessage(pctx PromptContext) string {
	if pctx.NoteTitle != "" {
		return "Topic: " + pctx.NoteTitle
	}
	return "Topic: (untitled note)"
}

func injectContext(system string, action ActionKind, pctx PromptContext) string {
	var b strings.Builder
	b.WriteString(system)

	if pctx.NoteTitle != "" && action != ActionTemplate {
		b.WriteString("\n\nNote title: ")
		b.WriteString(pctx.NoteTitle)
	}

	// Continuation already carries the preceding text as the user message.
	if pctx.Preceding != "" && action != ActionContinue {
		limit := pctx.MaxContext
		if limit <= 0 {
			limit = DefaultContextChars
		}
		b.WriteString("\n\nText preceding the cursor, for context:\n")
		b.WriteString(tailRunes(pctx.Preceding, limit))
	}

	return b.String()
}

// tailRunes keeps the last n runes, truncating silently on a rune
// boundary.
func tailRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
