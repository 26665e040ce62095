package reviewers

import (
	"fmt"
	"strings"

	"github.com/cerina/foundry/internal/sessions"
)

const draftingInstructions = `You are the drafting specialist for a structured
care-protocol foundry. Produce or revise a complete, well-structured protocol
draft that addresses the stated goal. Incorporate every piece of reviewer
feedback provided. Respond with JSON:
{"draft": "<full protocol text>", "changes_summary": "<what changed and why>", "debate_message": "<one-line note to the other reviewers>"}`

const clinicalInstructions = `You are the clinical critic for a structured
care-protocol foundry. Evaluate the draft for therapeutic validity, structure,
and tone. Score 0-10 where 10 is clinically sound. Respond with JSON:
{"score": <0-10>, "feedback": "<narrative assessment>", "suggestions": ["<concrete improvement>"], "debate_message": "<one-line note to the other reviewers>"}`

const safetyInstructions = `You are the safety guardian for a structured
care-protocol foundry. Evaluate the draft for patient-safety concerns:
self-harm risk, medical-advice violations, ethical breaches, triggering
language, boundary issues. Score 0-10 where 10 is fully safe. Flag every
concern with a severity of low, medium, high, or critical. Respond with JSON:
{"score": <0-10>, "feedback": "<narrative assessment>", "flags": [{"flag_type": "<kind>", "severity": "<low|medium|high|critical>", "details": "<specifics>"}], "debate_message": "<one-line note to the other reviewers>"}`

const empathyInstructions = `You are the empathy reviewer for a structured
care-protocol foundry. Evaluate the draft for warmth, accessibility, and
patient-safe language. Score 0-10 where 10 reads as warm and clear. Respond
with JSON:
{"score": <0-10>, "feedback": "<narrative assessment>", "suggestions": ["<concrete improvement>"], "debate_message": "<one-line note to the other reviewers>"}`

var instructions = map[sessions.Role]string{
	sessions.RoleDrafting: draftingInstructions,
	sessions.RoleClinical: clinicalInstructions,
	sessions.RoleSafety:   safetyInstructions,
	sessions.RoleEmpathy:  empathyInstructions,
}

// buildPrompt composes the full prompt for a role: instructions, the goal
// and context, the current draft, and any feedback carried into this pass.
func buildPrompt(role sessions.Role, s *sessions.Session, rc RoleContext) string {
	var b strings.Builder

	b.WriteString(instructions[role])
	b.WriteString("\n\n## Goal\n")
	b.WriteString(s.Goal)

	if s.Context != "" {
		b.WriteString("\n\n## Additional Context\n")
		b.WriteString(s.Context)
	}

	fmt.Fprintf(&b, "\n\n## Iteration\n%d of %d", rc.Iteration, s.Settings.MaxIterations)

	if role != sessions.RoleDrafting || s.CurrentDraft != "" {
		b.WriteString("\n\n## Current Draft\n")
		b.WriteString(s.CurrentDraft)
	}

	if rc.Feedback != "" {
		b.WriteString("\n\n## Reviewer Feedback To Address\n")
		b.WriteString(rc.Feedback)
	}

	if role == sessions.RoleDrafting && len(s.DebateLog) > 0 {
		b.WriteString("\n\n## Recent Debate\n")
		for _, entry := range tail(s.DebateLog, 5) {
			fmt.Fprintf(&b, "- [%s] (%s): %s\n", entry.From, entry.MessageType, entry.Message)
		}
	}

	return b.String()
}

func tail(entries []sessions.DebateEntry, n int) []sessions.DebateEntry {
	if len(entries) <= n {
		return entries
	}
	return entries[len(entries)-n:]
}
