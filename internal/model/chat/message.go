package chat

import (
	"time"

	"github.com/cloudwego/eino/schema"
)

// Role identifies the author of a turn. Only schema.User and schema.Assistant are stored.
type Role = schema.RoleType

// Message is one entry of a session transcript.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// ValidRole reports whether role may be appended to a transcript.
func ValidRole(role Role) bool {
	return role == schema.User || role == schema.Assistant
}
