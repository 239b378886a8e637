package models

// Teacher is a record in the Teachers collection. The ID is assigned by the
// server at creation time and never changes. Photo holds either an external
// URL or an embedded data URL image payload.
type Teacher struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Field      string `json:"field"`
	Experience int    `json:"experience"`
	Bio        string `json:"bio"`
	Photo      string `json:"photo,omitempty"`
}
