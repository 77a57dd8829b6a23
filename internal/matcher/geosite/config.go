package geosite

type config struct {
	File       string   `json:"file"`
	Categories []string `json:"categories"` // name[@attr] or name[@!attr]
}
