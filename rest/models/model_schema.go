package models

// SchemaResponse lists the entity kinds served by the API.
type SchemaResponse struct {
	Kinds []string `json:"kinds"`
}

// EntitySchema describes the fields and relations of one entity kind.
type EntitySchema struct {
	Kind          string           `json:"kind"`
	IdentityField string           `json:"identity_field"`
	Projections   []string         `json:"projections"`
	Fields        []FieldSchema    `json:"fields"`
	Relations     []RelationSchema `json:"relations"`
}

type FieldSchema struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	MayBeLarge  bool   `json:"may_be_large"`
}

type RelationSchema struct {
	Name   string `json:"name"`
	Target string `json:"target"`
}
