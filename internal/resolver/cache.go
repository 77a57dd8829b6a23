package resolver

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/miekg/dns"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/sieve/internal/matcher"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// ttl of answers served after expiry while a lazy refresh runs, rfc8767
	staleTTL       = 30
	refreshTimeout = 5 * time.Second
)

// CacheOptions controls the behaviour of the cache resolver wrapper.
type CacheOptions struct {
	Size     int64
	Lazy     bool // serve expired answers and refresh in background
	Persist  bool
	File     string
	Interval time.Duration // persist interval
}

var globalCacheOptions atomic.Value

func init() {
	ConfigureCache(CacheOptions{ //默认启用基础缓存, 缓存1w个key, 用户需要的情况下, 再开启lazycache
		Size: 10000,
	})
}

// ConfigureCache sets the options used by later TryEnableResolverCache calls.
func ConfigureCache(opt CacheOptions) {
	if opt.Size < 0 {
		opt.Size = 0
	}
	globalCacheOptions.Store(opt)
}

// TryEnableResolverCache wraps in with a cache when the configured size is positive.
func TryEnableResolverCache(in IDNSResolver) IDNSResolver {
	if in == nil {
		return nil
	}
	opt := globalCacheOptions.Load().(CacheOptions)
	if opt.Size <= 0 {
		return in
	}
	c, err := newCacheResolver(in, opt)
	if err != nil {
		logutil.GetLogger(context.Background()).Error("init cache resolver failed, cache disabled",
			zap.String("resolver", in.String()), zap.Error(err))
		return in
	}
	return c
}

type cacheEntry struct {
	msg    *dns.Msg
	expire time.Time
}

type cacheResolver struct {
	next    IDNSResolver
	opt     CacheOptions
	entries *lru.Cache[string, *cacheEntry]
	refresh singleflight.Group
	dirty   atomic.Bool
}

func newCacheResolver(next IDNSResolver, opt CacheOptions) (*cacheResolver, error) {
	entries, err := lru.New[string, *cacheEntry](int(opt.Size))
	if err != nil {
		return nil, err
	}
	c := &cacheResolver{next: next, opt: opt, entries: entries}
	if opt.Persist {
		if err := c.restore(); err != nil {
			logutil.GetLogger(context.Background()).Error("restore dns cache failed", zap.String("file", c.persistPath()), zap.Error(err))
		}
		go c.persistLoop()
	}
	return c, nil
}

func (c *cacheResolver) String() string {
	return fmt.Sprintf("cache(%s)", c.next.String())
}

func (c *cacheResolver) Query(ctx context.Context, req *dns.Msg) (*dns.Msg, error) {
	key := buildCacheKey(req)
	if key == "" {
		return c.next.Query(ctx, req)
	}
	if msg, fresh, ok := c.lookup(key); ok && (fresh || c.opt.Lazy) {
		msg.Id = req.Id
		msg.Question = append([]dns.Question(nil), req.Question...)
		if !fresh {
			logutil.GetLogger(ctx).Debug("serve stale cache entry", zap.String("key", key))
			c.refreshAsync(key, req.Copy())
		}
		return msg, nil
	}
	resp, err := c.next.Query(ctx, req)
	if err != nil {
		return nil, err
	}
	c.save(key, resp)
	return resp, nil
}

// lookup returns a copy of the cached answer with ttls counted down.
func (c *cacheResolver) lookup(key string) (*dns.Msg, bool, bool) {
	entry, ok := c.entries.Get(key)
	if !ok {
		return nil, false, false
	}
	msg := entry.msg.Copy()
	left := time.Until(entry.expire)
	if left <= 0 {
		capTTL(msg, staleTTL)
		return msg, false, true
	}
	capTTL(msg, uint32(left/time.Second))
	return msg, true, true
}

func (c *cacheResolver) save(key string, msg *dns.Msg) {
	ttl, ok := minTTL(msg)
	if !ok || ttl == 0 {
		return
	}
	c.entries.Add(key, &cacheEntry{
		msg:    msg.Copy(),
		expire: time.Now().Add(time.Duration(ttl) * time.Second),
	})
	c.dirty.Store(true)
}

// refreshAsync re-queries key in background, at most one refresh per key at a time.
func (c *cacheResolver) refreshAsync(key string, req *dns.Msg) {
	go func() {
		_, _, _ = c.refresh.Do(key, func() (interface{}, error) {
			ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
			defer cancel()
			resp, err := c.next.Query(ctx, req)
			if err != nil {
				logutil.GetLogger(ctx).Error("lazy cache refresh failed", zap.String("key", key), zap.Error(err))
				return nil, err
			}
			c.save(key, resp)
			logutil.GetLogger(ctx).Debug("lazy cache refresh succ", zap.String("key", key))
			return nil, nil
		})
	}()
}

func buildCacheKey(req *dns.Msg) string {
	if req == nil || len(req.Question) == 0 {
		return ""
	}
	q := req.Question[0]
	domain := matcher.NormalizeDomain(q.Name)
	if domain == "" {
		return ""
	}
	return fmt.Sprintf("%s|%d|%d", domain, q.Qtype, q.Qclass)
}

func sections(msg *dns.Msg) [][]dns.RR {
	return [][]dns.RR{msg.Answer, msg.Ns, msg.Extra}
}

// minTTL returns the smallest ttl of the first non-empty section.
func minTTL(msg *dns.Msg) (uint32, bool) {
	for _, rrs := range sections(msg) {
		if len(rrs) == 0 {
			continue
		}
		ttl := rrs[0].Header().Ttl
		for _, rr := range rrs[1:] {
			ttl = min(ttl, rr.Header().Ttl)
		}
		return ttl, true
	}
	return 0, false
}

func capTTL(msg *dns.Msg, ttl uint32) {
	for _, rrs := range sections(msg) {
		for _, rr := range rrs {
			rr.Header().Ttl = min(rr.Header().Ttl, ttl)
		}
	}
}
