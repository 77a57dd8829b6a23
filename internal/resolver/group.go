package resolver

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/miekg/dns"
	"golang.org/x/sync/errgroup"
)

// groupResolver races up to parallel members, starting at a random offset,
// and returns the first answer. Remaining queries are cancelled.
type groupResolver struct {
	res      []IDNSResolver
	parallel int
}

func (p *groupResolver) String() string {
	names := make([]string, 0, len(p.res))
	for _, r := range p.res {
		names = append(names, r.String())
	}
	return fmt.Sprintf("group[%s]", strings.Join(names, ","))
}

func (p *groupResolver) Query(ctx context.Context, req *dns.Msg) (*dns.Msg, error) {
	if len(p.res) == 0 {
		return nil, fmt.Errorf("empty resolver group")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)

	var (
		once   sync.Once
		answer *dns.Msg
		mu     sync.Mutex
		errs   []error
	)
	pos := rand.IntN(len(p.res))
	for i := 0; i < p.parallel; i++ {
		r := p.res[(i+pos)%len(p.res)]
		eg.Go(func() error {
			rs, err := r.Query(ctx, req)
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", r.String(), err))
				mu.Unlock()
				return nil
			}
			once.Do(func() {
				answer = rs
				cancel()
			})
			return nil
		})
	}
	_ = eg.Wait()
	if answer != nil {
		return answer, nil
	}
	return nil, fmt.Errorf("all upstreams failed: %w", errors.Join(errs...))
}

// NewGroupResolver creates a resolver over res. parallel is clamped into [1, len(res)].
func NewGroupResolver(res []IDNSResolver, parallel int) IDNSResolver {
	if parallel > len(res) {
		parallel = len(res)
	}
	if parallel <= 0 {
		parallel = 1
	}
	return &groupResolver{res: res, parallel: parallel}
}
