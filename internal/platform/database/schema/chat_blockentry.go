package schema

// ChatBlockEntryTable represents the 'chat.blockentry' table
type ChatBlockEntryTable struct {
	Table       string
	ID          string
	TenantID    string
	PhoneNumber string
	BlockedBy   string
	Reason      string
	BlockedAt   string
	IsActive    string
	UnblockedAt string
	UnblockedBy string
}

// ChatBlockEntry is the schema definition for chat.blockentry
var ChatBlockEntry = ChatBlockEntryTable{
	Table:       "chat.blockentry",
	ID:          "id",
	TenantID:    "tenantid",
	PhoneNumber: "phonenumber",
	BlockedBy:   "blockedby",
	Reason:      "reason",
	BlockedAt:   "blockedat",
	IsActive:    "isactive",
	UnblockedAt: "unblockedat",
	UnblockedBy: "unblockedby",
}

func (t ChatBlockEntryTable) Columns() []string {
	return []string{
		t.ID, t.TenantID, t.PhoneNumber, t.BlockedBy, t.Reason,
		t.BlockedAt, t.IsActive, t.UnblockedAt, t.UnblockedBy,
	}
}
