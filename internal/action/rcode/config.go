package rcode

type config struct {
	Code int    `json:"code"`
	Name string `json:"name"` // mnemonic such as "NXDOMAIN", wins over code
	// when positive a synthetic SOA with this ttl goes to the authority
	// section, so clients cache the negative answer
	SOATTL uint32 `json:"soa_ttl"`
}
