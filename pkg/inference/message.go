package inference

// Role is the author of a chat message as the completions API names it.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the three roles the API accepts.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is one entry of the history sent to the chat service.
// It marshals to the wire form directly.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// PrependSystem returns msgs led by a system message carrying prompt.
// msgs is returned as is when prompt is empty or a system message already
// leads the history.
func PrependSystem(prompt string, msgs []Message) []Message {
	if prompt == "" || (len(msgs) > 0 && msgs[0].Role == RoleSystem) {
		return msgs
	}
	out := make([]Message, 0, len(msgs)+1)
	out = append(out, NewSystemMessage(prompt))
	return append(out, msgs...)
}
