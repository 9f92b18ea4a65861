package schema

// ChatMessageReadTable represents the 'chat.messageread' table
type ChatMessageReadTable struct {
	Table     string
	MessageID string
	Reader    string
	ReadAt    string
}

// ChatMessageRead is the schema definition for chat.messageread
var ChatMessageRead = ChatMessageReadTable{
	Table:     "chat.messageread",
	MessageID: "messageid",
	Reader:    "reader",
	ReadAt:    "readat",
}

func (t ChatMessageReadTable) Columns() []string {
	return []string{t.MessageID, t.Reader, t.ReadAt}
}
