package schema

// ChatMessageTable represents the 'chat.message' table
type ChatMessageTable struct {
	Table           string
	ID              string
	TenantID        string
	SenderKind      string
	SenderAccountID string
	SenderRole      string
	SenderTenantID  string
	SenderPhone     string
	Receivers       string
	Body            string
	Metadata        string
	ClientMessageID string
	CreatedAt       string
}

// ChatMessage is the schema definition for chat.message
var ChatMessage = ChatMessageTable{
	Table:           "chat.message",
	ID:              "id",
	TenantID:        "tenantid",
	SenderKind:      "senderkind",
	SenderAccountID: "senderaccountid",
	SenderRole:      "senderrole",
	SenderTenantID:  "sendertenantid",
	SenderPhone:     "senderphone",
	Receivers:       "receivers",
	Body:            "body",
	Metadata:        "metadata",
	ClientMessageID: "clientmessageid",
	CreatedAt:       "createdat",
}

func (t ChatMessageTable) Columns() []string {
	return []string{
		t.ID, t.TenantID, t.SenderKind, t.SenderAccountID, t.SenderRole, t.SenderTenantID, t.SenderPhone,
		t.Receivers, t.Body, t.Metadata, t.ClientMessageID, t.CreatedAt,
	}
}
