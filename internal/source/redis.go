package source

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const defaultRedisTimeout = 3 * time.Second

func init() {
	Register("redis", redisSourceFactory)
}

type setReader interface {
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	Close() error
}

var newRedisClient = func(opt *redis.Options) setReader {
	return redis.NewClient(opt)
}

// redis://[:password@]host[:port][/db]?key=<set>
func redisSourceFactory(uri *url.URL, params *Params) (IPatternSource, error) {
	if params.Key == "" {
		return nil, fmt.Errorf("redis source requires key param")
	}
	addr := uri.Host
	if addr == "" {
		return nil, fmt.Errorf("redis source requires host")
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(strings.Trim(addr, "[]"), "6379")
	}
	db := 0
	if p := strings.Trim(uri.Path, "/"); p != "" {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redis db %q: %w", p, err)
		}
		db = v
	}
	timeout := time.Duration(params.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultRedisTimeout
	}
	opt := &redis.Options{
		Addr:         addr,
		DB:           db,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}
	if uri.User != nil {
		opt.Username = uri.User.Username()
		opt.Password, _ = uri.User.Password()
	}
	return &redisSource{opt: opt, key: params.Key}, nil
}

type redisSource struct {
	opt *redis.Options
	key string
}

func (r *redisSource) String() string {
	return fmt.Sprintf("redis:%s/%d#%s", r.opt.Addr, r.opt.DB, r.key)
}

func (r *redisSource) Load(ctx context.Context) ([]string, error) {
	client := newRedisClient(r.opt)
	defer client.Close()
	members, err := client.SMembers(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("read redis set %s: %w", r.key, err)
	}
	rs := make([]string, 0, len(members))
	for _, item := range members {
		if line, ok := cleanLine(item); ok {
			rs = append(rs, line)
		}
	}
	return rs, nil
}
