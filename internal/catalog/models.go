package catalog

// Template is a reusable hazard/control text entry from the shared hazard
// catalog. The catalog is owned by an external collaborator; this engine
// treats templates as read-only input when composing hazard rows.

type Template struct {
	ID              string `json:"id" db:"id"`
	Title           string `json:"title" db:"title"`
	Description     string `json:"description" db:"description"`
	DefaultControls string `json:"default_controls" db:"default_controls"`
}
