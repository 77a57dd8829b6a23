package host

type config struct {
	// domain -> comma separated IP list; "*.example.com" covers every subdomain
	Records map[string]string `json:"records"`
	Files   []string          `json:"files"` // hosts style lines, any source link
}
