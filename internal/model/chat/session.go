package chat

import "time"

// Session captures one gated conversation. The thread id is bound on first use and
// never replaced afterwards.
type Session struct {
	ID              string     `json:"id"`
	Authenticated   bool       `json:"authenticated"`
	AuthenticatedAt *time.Time `json:"authenticatedAt,omitempty"`
	ThreadID        string     `json:"threadId,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// Prompts holds the input hints shown next to the message box.
type Prompts struct {
	First string
	Next  string
}

// DefaultPrompts mirrors the copy used by the fundraising assistant.
var DefaultPrompts = Prompts{
	First: "What month and year are you writing for today?",
	Next:  "Type your response here...",
}

// Placeholder picks the input hint for the given transcript.
func (p Prompts) Placeholder(transcript []Message) string {
	if len(transcript) == 0 {
		return p.First
	}
	return p.Next
}
