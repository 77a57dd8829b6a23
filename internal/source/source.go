// Package source loads pattern lists from local files, HTTP endpoints and redis.
package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/gorilla/schema"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// IPatternSource produces one pattern per element, blank lines and comments removed.
type IPatternSource interface {
	String() string
	Load(ctx context.Context) ([]string, error)
}

// Params carries the query string options shared by all source types.
type Params struct {
	Timeout int64  `schema:"timeout"` // milliseconds
	Key     string `schema:"key"`
}

type Factory func(uri *url.URL, params *Params) (IPatternSource, error)

var m = make(map[string]Factory)

func Register(scheme string, fac Factory) {
	m[scheme] = fac
}

// MakeSource builds a source from a link. A link without scheme is a file
// path taken verbatim, so '#', '?' and '%' stay part of the name.
func MakeSource(link string) (IPatternSource, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return nil, fmt.Errorf("empty source link")
	}
	if !strings.Contains(link, "://") {
		return newFileSource(link), nil
	}
	uri, err := url.Parse(link)
	if err != nil {
		return nil, fmt.Errorf("parse source link %s: %w", link, err)
	}
	cr, ok := m[uri.Scheme]
	if !ok {
		return nil, fmt.Errorf("no source type found, type:%s", uri.Scheme)
	}
	params := &Params{}
	if err := decodeParams(params, uri.Query()); err != nil {
		return nil, fmt.Errorf("decode source params %s: %w", link, err)
	}
	return cr(uri, params)
}

func decodeParams(out interface{}, in map[string][]string) error {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d.Decode(out, in)
}

// LoadAll loads every link in order and concatenates the results.
func LoadAll(ctx context.Context, links []string) ([]string, error) {
	var rs []string
	for _, link := range links {
		if strings.TrimSpace(link) == "" {
			continue
		}
		src, err := MakeSource(link)
		if err != nil {
			return nil, err
		}
		items, err := src.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load source %s: %w", src.String(), err)
		}
		logutil.GetLogger(ctx).Debug("load pattern source succ",
			zap.String("source", src.String()), zap.Int("pattern_count", len(items)))
		rs = append(rs, items...)
	}
	return rs, nil
}

// ReadLines returns the trimmed non-empty lines of r that do not start with '#'.
func ReadLines(r io.Reader) ([]string, error) {
	var rs []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line, ok := cleanLine(scanner.Text()); ok {
			rs = append(rs, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rs, nil
}

func cleanLine(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", false
	}
	return line, true
}
