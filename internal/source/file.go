package source

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

func init() {
	Register("file", fileSourceFactory)
}

func fileSourceFactory(uri *url.URL, _ *Params) (IPatternSource, error) {
	// file://relative/path parses "relative" as the host.
	path := uri.Host + uri.Path
	if path == "" {
		return nil, fmt.Errorf("file source requires a path")
	}
	return newFileSource(path), nil
}

func newFileSource(path string) *fileSource {
	return &fileSource{path: filepath.Clean(path)}
}

type fileSource struct {
	path string
}

func (f *fileSource) String() string {
	return "file:" + f.path
}

func (f *fileSource) Load(ctx context.Context) ([]string, error) {
	fd, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open pattern file %s: %w", f.path, err)
	}
	defer fd.Close()
	rs, err := ReadLines(fd)
	if err != nil {
		return nil, fmt.Errorf("read pattern file %s: %w", f.path, err)
	}
	return rs, nil
}
