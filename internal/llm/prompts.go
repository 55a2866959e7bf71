package llm

import "strings"

// OutputPlaceholder is replaced by the transcript in every template.
const OutputPlaceholder = "${output}"

const transcriptMarker = "Transcript:\n"

// Template is a post-processing prompt.
type Template struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Body string `json:"body" yaml:"body"`
}

// Render substitutes text for the placeholder.
func (t Template) Render(text string) string {
	return strings.ReplaceAll(t.Body, OutputPlaceholder, text)
}

// Builtins returns the shipped templates.
func Builtins() []Template {
	return []Template{
		{
			ID:   "default_improve_transcriptions",
			Name: "Improve Transcriptions",
			Body: "Clean this transcript for readability while preserving meaning:\n" +
				"1. Fix spelling, capitalization, punctuation, and spacing\n" +
				"2. Convert spoken number words to digits when clear\n" +
				"3. Remove obvious filler words and false starts only when confidence is high\n" +
				"4. Keep technical terms and identifiers exact\n\n" +
				"Return only the cleaned transcript text.\n\n" + transcriptMarker + OutputPlaceholder,
		},
		{
			ID:   "default_coding_assistant",
			Name: "Coding Assistant",
			Body: "Rewrite this transcript into an engineering update.\n\n" +
				"Output format:\n## Summary\n- 2-4 factual bullets\n## Tasks\n- [ ] Task\n## Notes\n- Optional short bullets\n\n" +
				transcriptMarker + OutputPlaceholder,
		},
		{
			ID:   "default_slack_message",
			Name: "Slack Message",
			Body: "Convert this transcript into a concise Slack update.\n" +
				"1. Keep it direct, friendly, and skimmable\n" +
				"2. Preserve decisions, blockers, owners, and dates exactly\n" +
				"3. Keep to 80-140 words unless source is shorter\n\n" +
				"Return only the final Slack message body.\n\n" + transcriptMarker + OutputPlaceholder,
		},
		{
			ID:   "default_email_draft",
			Name: "Email Draft",
			Body: "Transform this transcript into a professional email draft.\n\n" +
				"Output format:\nSubject: <clear subject>\n<body paragraphs>\n\n" + transcriptMarker + OutputPlaceholder,
		},
		{
			ID:   "default_document_writer",
			Name: "Document Writer",
			Body: "Turn this transcript into a structured document draft.\n\n" +
				"Output format:\n# Title\n## Context\n## Details\n## Decisions\n## Next Steps\n\n" + transcriptMarker + OutputPlaceholder,
		},
		{
			ID:   "default_meeting_notes",
			Name: "Meeting Notes",
			Body: "Convert this transcript into clean meeting notes.\n\n" +
				"Output format:\n## Summary\n- Bullet points\n## Decisions\n- Bullet points\n## Open Questions\n- Bullet points\n" +
				"## Action Items\n- [ ] Owner - Task (Due: date or TBA)\n\n" + transcriptMarker + OutputPlaceholder,
		},
		{
			ID:   "default_action_items",
			Name: "Action Items",
			Body: "Extract only actionable tasks from this transcript.\n\n" +
				"Output format:\n- [ ] Owner - Task (Due: date or TBA)\n\n" +
				"Rules:\n- Use \"Unassigned\" when owner is unknown\n- Do not include non-actionable commentary\n\n" +
				transcriptMarker + OutputPlaceholder,
		},
		{
			ID:   "default_standup_update",
			Name: "Standup Update",
			Body: "Rewrite this transcript into a daily standup update.\n\n" +
				"Output format:\nYesterday:\n- Bullet points\nToday:\n- Bullet points\nBlockers:\n- Bullet points or \"None\"\n\n" +
				"Rules:\n- Max 3 bullets per section\n- Keep under 120 words when possible\n- Do not add details not present in source\n\n" +
				transcriptMarker + OutputPlaceholder,
		},
		{
			ID:   "default_pr_description",
			Name: "PR Description",
			Body: "Turn this transcript into a pull request description.\n\n" +
				"Output format:\n## Summary\n## Changes\n## Testing\n## Reviewer Checklist\n\n" + transcriptMarker + OutputPlaceholder,
		},
	}
}

// Lookup finds a built-in template by id.
func Lookup(id string) (Template, bool) {
	for _, t := range Builtins() {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}
