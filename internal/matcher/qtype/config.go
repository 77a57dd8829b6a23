package qtype

type config struct {
	Types []string `json:"types"` // mnemonic ("AAAA") or numeric ("28")
}
