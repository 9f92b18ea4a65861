package schema

// CoreTenantTable represents the 'core.tenant' table
type CoreTenantTable struct {
	Table          string
	ID             string
	Name           string
	NormalizedName string
	Status         string
	CreatedBy      string
	LastMessageAt  string
	CreatedAt      string
	UpdatedAt      string
	DeletedAt      string
}

// CoreTenant is the schema definition for core.tenant
var CoreTenant = CoreTenantTable{
	Table:          "core.tenant",
	ID:             "id",
	Name:           "name",
	NormalizedName: "normalizedname",
	Status:         "status",
	CreatedBy:      "createdby",
	LastMessageAt:  "lastmessageat",
	CreatedAt:      "createdat",
	UpdatedAt:      "updatedat",
	DeletedAt:      "deletedat",
}

func (t CoreTenantTable) Columns() []string {
	return []string{t.ID, t.Name, t.NormalizedName, t.Status, t.CreatedBy, t.LastMessageAt, t.CreatedAt, t.UpdatedAt, t.DeletedAt}
}
