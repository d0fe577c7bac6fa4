package domain

// DatasetOption describes one synthetic dataset preset that can be
// generated locally and used as a benchmark source.
type DatasetOption struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	FileName    string `json:"fileName"`
	Records     int    `json:"records"`
	SizeLabel   string `json:"sizeLabel"`
	Description string `json:"description"`
	Generated   bool   `json:"generated"`
	LocalPath   string `json:"localPath,omitempty"`
}
