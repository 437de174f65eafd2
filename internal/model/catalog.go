package model

// Plan is a paid tier shown on the marketing pages.
type Plan struct {
	ID       int      `json:"id"       yaml:"id"`
	Name     string   `json:"name"     yaml:"name"`
	Price    string   `json:"price"    yaml:"price"`
	Features []string `json:"features" yaml:"features"`
	Badge    string   `json:"badge,omitempty" yaml:"badge"`
}

// Offering is one of the services advertised on the home page.
type Offering struct {
	ID          int    `json:"id"          yaml:"id"`
	Name        string `json:"name"        yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Icon        string `json:"icon"        yaml:"icon"`
}
