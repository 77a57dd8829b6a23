package tld

type config struct {
	Suffixes  []string `json:"suffixes"`
	Sources   []string `json:"sources"`
	ICANNOnly bool     `json:"icann_only"`
}
