package editor

import (
	"strings"

	"jdnotes/llm"
)

// Trigger is a resolved action selection, from either a slash command or
// the context menu.
type Trigger struct {
	Action      llm.ActionKind
	Template    llm.TemplateKind
	Instruction string
}

var slashCommands = map[string]Trigger{
	"refine":     {Action: llm.ActionRefine},
	"summarize":  {Action: llm.ActionSummarize},
	"translate":  {Action: llm.ActionTranslate},
	"continue":   {Action: llm.ActionContinue},
	"meeting":    {Action: llm.ActionTemplate, Template: llm.TemplateMeeting},
	"brainstorm": {Action: llm.ActionTemplate, Template: llm.TemplateBrainstorm},
	"code":       {Action: llm.ActionTemplate, Template: llm.TemplateCode},
}

// DetectSlashCommand inspects the text before the cursor for a trailing
// slash command. `/ai <instruction>` maps to the custom action with the
// rest of the line as instruction; the remaining commands take no
// arguments. Returns false when the line is not a command.
func DetectSlashCommand(textBefore string) (Trigger, bool) {
	line := textBefore
	if idx := strings.LastIndexByte(line, '\n'); idx >= 0 {
		line = line[idx+1:]
	}
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return Trigger{}, false
	}

	name, rest, _ := strings.Cut(line[1:], " ")
	name = strings.ToLower(name)

	if name == "ai" {
		instruction := strings.TrimSpace(rest)
		if instruction == "" {
			return Trigger{}, false
		}
		return Trigger{Action: llm.ActionCustom, Instruction: instruction}, true
	}

	trigger, ok := slashCommands[name]
	if !ok || rest != "" {
		return Trigger{}, false
	}
	return trigger, true
}

// MenuAction describes one entry of the editor's AI context menu.
type MenuAction struct {
	Label          string           `json:"label"`
	Action         llm.ActionKind   `json:"action"`
	Template       llm.TemplateKind `json:"template,omitempty"`
	NeedsSelection bool             `json:"needs_selection"`
}

// MenuActions is the fixed action list the frontend renders; order is
// display order.
func MenuActions() []MenuAction {
	return []MenuAction{
		{Label: "Refine writing", Action: llm.ActionRefine, NeedsSelection: true},
		{Label: "Summarize", Action: llm.ActionSummarize, NeedsSelection: true},
		{Label: "Translate", Action: llm.ActionTranslate, NeedsSelection: true},
		{Label: "Continue writing", Action: llm.ActionContinue},
		{Label: "Custom instruction", Action: llm.ActionCustom},
		{Label: "Meeting notes", Action: llm.ActionTemplate, Template: llm.TemplateMeeting},
		{Label: "Brainstorm outline", Action: llm.ActionTemplate, Template: llm.TemplateBrainstorm},
		{Label: "Code snippet", Action: llm.ActionTemplate, Template: llm.TemplateCode},
	}
}
