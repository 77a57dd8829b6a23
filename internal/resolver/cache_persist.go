package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/miekg/dns"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const defaultPersistInterval = 5 * time.Minute

// persistFile is the snapshot written by one cache. Owner is the wrapped
// resolver, answers of other upstreams are never restored.
type persistFile struct {
	Owner   string          `json:"owner"`
	Records []persistRecord `json:"records"`
}

type persistRecord struct {
	Key    string `json:"key"`
	Expire int64  `json:"expire"` // unix milliseconds
	Msg    []byte `json:"msg"`    // wire format
}

func (c *cacheResolver) persistLoop() {
	interval := c.opt.Interval
	if interval <= 0 {
		interval = defaultPersistInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		if !c.dirty.Swap(false) {
			continue
		}
		ctx := context.Background()
		if err := c.dump(); err != nil {
			logutil.GetLogger(ctx).Error("save dns cache file failed", zap.String("file", c.persistPath()), zap.Error(err))
			continue
		}
		logutil.GetLogger(ctx).Debug("save dns cache file succ", zap.Int("record_count", c.entries.Len()))
	}
}

// persistPath derives one file per upstream from the configured file, so
// caches in front of different resolvers never share a snapshot.
func (c *cacheResolver) persistPath() string {
	if c.opt.File == "" {
		return ""
	}
	return fmt.Sprintf("%s.%016x", filepath.Clean(c.opt.File), xxhash.Sum64String(c.next.String()))
}

// dump writes every entry to the cache file, replacing it atomically.
func (c *cacheResolver) dump() error {
	path := c.persistPath()
	if path == "" {
		return fmt.Errorf("no cache file configured")
	}
	records := make([]persistRecord, 0, c.entries.Len())
	for _, key := range c.entries.Keys() {
		entry, ok := c.entries.Peek(key)
		if !ok {
			continue
		}
		bs, err := entry.msg.Pack()
		if err != nil {
			continue
		}
		records = append(records, persistRecord{Key: key, Expire: entry.expire.UnixMilli(), Msg: bs})
	}
	data, err := json.Marshal(persistFile{Owner: c.next.String(), Records: records})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// restore loads the cache file. Expired records are kept only in lazy mode.
func (c *cacheResolver) restore() error {
	path := c.persistPath()
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var snapshot persistFile
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return err
	}
	if snapshot.Owner != c.next.String() {
		return fmt.Errorf("cache file %s belongs to %s", path, snapshot.Owner)
	}
	now := time.Now()
	for _, rec := range snapshot.Records {
		expire := time.UnixMilli(rec.Expire)
		if expire.Before(now) && !c.opt.Lazy {
			continue
		}
		msg := &dns.Msg{}
		if err := msg.Unpack(rec.Msg); err != nil {
			continue
		}
		c.entries.Add(rec.Key, &cacheEntry{msg: msg, expire: expire})
	}
	return nil
}
