// Package parse is the front door of bq: it loads a bibliography into memory
// (decompressing it when needed) and parses it with package bibtex.
package parse

import (
	"errors"
	"fmt"
	"io"

	"github.com/dzjyyds666/bq/parse/bibtex"
	"github.com/dzjyyds666/bq/pkg"
)

var ErrFileNotFound = errors.New("parse: file not found")

// ParseFile reads path fully and parses it. Files ending in gzip or zstd
// streams are decompressed first.
func ParseFile(path string, opts bibtex.Options) (*bibtex.Database, error) {
	exist, err := pkg.CheckFileExist(path)
	if err != nil {
		return nil, fmt.Errorf("parse: stat %s: %w", path, err)
	}
	if !exist {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	data, err := pkg.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	db, err := bibtex.NewParser(opts).Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return db, nil
}

// ParseReader reads r to the end and parses it.
func ParseReader(r io.Reader, opts bibtex.Options) (*bibtex.Database, error) {
	data, err := pkg.ReadAll(r, 0)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return bibtex.NewParser(opts).Parse(data)
}
