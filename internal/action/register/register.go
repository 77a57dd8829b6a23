// Package register links every action implementation into the binary.
package register

import (
	_ "github.com/xxxsen/sieve/internal/action/forward"
	_ "github.com/xxxsen/sieve/internal/action/host"
	_ "github.com/xxxsen/sieve/internal/action/rcode"
)
