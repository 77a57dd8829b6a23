package qclass

type config struct {
	Classes []string `json:"classes"` // mnemonic ("IN", "CH") or numeric ("3")
}
