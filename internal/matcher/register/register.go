// Package register links every matcher implementation into the binary.
package register

import (
	_ "github.com/xxxsen/sieve/internal/matcher/domain"
	_ "github.com/xxxsen/sieve/internal/matcher/geosite"
	_ "github.com/xxxsen/sieve/internal/matcher/qclass"
	_ "github.com/xxxsen/sieve/internal/matcher/qtype"
	_ "github.com/xxxsen/sieve/internal/matcher/tld"
)
