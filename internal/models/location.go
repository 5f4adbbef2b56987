package models

type Mandal struct {
	ID       int       `json:"id"`
	Name     string    `json:"name"`
	Villages []Village `json:"villages,omitempty"`
}

type Village struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	MandalID int    `json:"mandal_id"`
}

// Crop is a catalog entry, not a planting record (see CropData).
type Crop struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
