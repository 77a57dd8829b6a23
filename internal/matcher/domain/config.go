package domain

type config struct {
	Domains []string `json:"domains"`
	Files   []string `json:"files"`
	Sources []string `json:"sources"` // file://, http(s)://, redis:// links
}
