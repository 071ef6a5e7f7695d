package packaging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/danmuck/seedbank/internal/mesh"
	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zip"
)

// Bundle is a saved .seed file read back from disk.
type Bundle struct {
	Path     string
	Metadata Metadata
	Files    []string
}

func (b Bundle) Payload() mesh.Seed {
	return seedRecord(b.Metadata, b.Files)
}

// Open reads the metadata and file listing of a saved bundle.
func Open(path string) (Bundle, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return Bundle{}, err
	}
	defer zr.Close()

	bundle := Bundle{Path: path, Files: make([]string, 0, len(zr.File))}
	found := false
	for _, f := range zr.File {
		if f.Name != MetadataName {
			bundle.Files = append(bundle.Files, f.Name)
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return Bundle{}, err
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return Bundle{}, err
		}
		if err := json.Unmarshal(raw, &bundle.Metadata); err != nil {
			return Bundle{}, fmt.Errorf("packaging: %s: %w", path, err)
		}
		found = true
	}
	if !found {
		return Bundle{}, fmt.Errorf("%w: %s", ErrMissingMetadata, path)
	}
	return bundle, nil
}

// Scan opens every .seed bundle directly under dir, sorted by path.
// Unreadable bundles are returned as errors alongside the good ones.
func Scan(dir string) ([]Bundle, []error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, []error{err}
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), Extension) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	bundles := make([]Bundle, 0, len(names))
	var errs []error
	for _, name := range names {
		b, err := Open(filepath.Join(dir, name))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		bundles = append(bundles, b)
	}
	return bundles, errs
}
