package packaging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/seedbank/internal/mesh"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog/log"
)

const (
	// Extension is appended to every saved bundle.
	Extension    = ".seed"
	MetadataName = "metadata.json"
	Version      = "1.0"
)

var (
	ErrFileNotFound       = errors.New("packaging: file not found")
	ErrInvalidDestination = errors.New("packaging: invalid destination path")
	ErrMissingMetadata    = errors.New("packaging: bundle has no metadata.json")
)

// Metadata is written as metadata.json at the root of every bundle.
type Metadata struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Curriculum  string    `json:"curriculum"`
	Subject     string    `json:"subject"`
	CreatedAt   time.Time `json:"created_at"`
	Version     string    `json:"version"`
}

type fileEntry struct {
	Source      string
	Destination string
}

// Package is one seed bundle under construction.
type Package struct {
	mu    sync.Mutex
	meta  Metadata
	files []fileEntry
}

func (p *Package) Metadata() Metadata {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.meta
}

// AddFile queues src to be stored at dst inside the bundle. An empty dst
// keeps the base name of src.
func (p *Package) AddFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, src)
		}
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("packaging: %s is a directory", src)
	}
	if dst == "" {
		dst = filepath.Base(src)
	}
	clean, err := cleanDestination(dst)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.files = append(p.files, fileEntry{Source: src, Destination: clean})
	return nil
}

// Files returns bundle paths in the order they were added.
func (p *Package) Files() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.files))
	for _, f := range p.files {
		out = append(out, f.Destination)
	}
	return out
}

// Payload renders the package as the opaque record nodes store and forward.
func (p *Package) Payload() mesh.Seed {
	return seedRecord(p.Metadata(), p.Files())
}

// Save writes output+".seed" and returns that path. Sources that vanished
// since AddFile are skipped.
func (p *Package) Save(output string) (string, error) {
	p.mu.Lock()
	meta := p.meta
	files := append([]fileEntry(nil), p.files...)
	p.mu.Unlock()

	target := output + Extension
	if dir := filepath.Dir(target); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}
	out, err := os.Create(target)
	if err != nil {
		return "", err
	}

	zw := zip.NewWriter(out)
	if err := writeBundle(zw, meta, files); err != nil {
		zw.Close()
		out.Close()
		return "", err
	}
	if err := zw.Close(); err != nil {
		out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	log.Info().Str("seed_id", meta.ID).Str("path", target).Int("files", len(files)).Msg("seed package saved")
	return target, nil
}

func writeBundle(zw *zip.Writer, meta Metadata, files []fileEntry) error {
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	w, err := zw.CreateHeader(&zip.FileHeader{Name: MetadataName, Method: zip.Deflate, Modified: meta.CreatedAt})
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		return err
	}

	for _, f := range files {
		if err := copyInto(zw, f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				log.Warn().Str("source", f.Source).Msg("package source disappeared, skipping")
				continue
			}
			return fmt.Errorf("add %s: %w", f.Destination, err)
		}
	}
	return nil
}

func copyInto(zw *zip.Writer, f fileEntry) error {
	src, err := os.Open(f.Source)
	if err != nil {
		return err
	}
	defer src.Close()
	info, err := src.Stat()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = f.Destination
	hdr.Method = zip.Deflate
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}

func cleanDestination(dst string) (string, error) {
	slashed := filepath.ToSlash(dst)
	if path.IsAbs(slashed) {
		return "", fmt.Errorf("%w: %s", ErrInvalidDestination, dst)
	}
	clean := path.Clean(slashed)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") || clean == MetadataName {
		return "", fmt.Errorf("%w: %s", ErrInvalidDestination, dst)
	}
	return clean, nil
}

func seedRecord(meta Metadata, files []string) mesh.Seed {
	return mesh.Seed{
		"id":          meta.ID,
		"title":       meta.Title,
		"description": meta.Description,
		"curriculum":  meta.Curriculum,
		"subject":     meta.Subject,
		"created_at":  meta.CreatedAt.Format(time.RFC3339),
		"version":     meta.Version,
		"files":       fileList(files),
	}
}

// fileList widens names to []any, the shape a decoded JSON list takes.
func fileList(files []string) []any {
	out := make([]any, len(files))
	for i, f := range files {
		out[i] = f
	}
	return out
}

// Summary is one row of ListPackages.
type Summary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Curriculum  string    `json:"curriculum"`
	Subject     string    `json:"subject"`
	CreatedAt   time.Time `json:"created_at"`
	Files       int       `json:"files"`
}

// System tracks the packages created in this process.
type System struct {
	mu       sync.Mutex
	packages []*Package
	clock    func() time.Time
}

func NewSystem() *System {
	return &System{clock: time.Now}
}

// WithClock replaces the creation clock. Used by tests.
func (s *System) WithClock(clock func() time.Time) *System {
	s.clock = clock
	return s
}

func (s *System) CreatePackage(title, description, curriculum, subject string) *Package {
	pkg := &Package{
		meta: Metadata{
			ID:          uuid.NewString(),
			Title:       title,
			Description: description,
			Curriculum:  curriculum,
			Subject:     subject,
			CreatedAt:   s.clock().UTC().Truncate(time.Second),
			Version:     Version,
		},
		files: make([]fileEntry, 0),
	}
	s.mu.Lock()
	s.packages = append(s.packages, pkg)
	s.mu.Unlock()
	log.Debug().Str("seed_id", pkg.meta.ID).Str("title", title).Msg("package created")
	return pkg
}

// ListPackages returns packages in creation order.
func (s *System) ListPackages() []Summary {
	s.mu.Lock()
	pkgs := append([]*Package(nil), s.packages...)
	s.mu.Unlock()

	out := make([]Summary, 0, len(pkgs))
	for _, pkg := range pkgs {
		meta := pkg.Metadata()
		out = append(out, Summary{
			ID:          meta.ID,
			Title:       meta.Title,
			Description: meta.Description,
			Curriculum:  meta.Curriculum,
			Subject:     meta.Subject,
			CreatedAt:   meta.CreatedAt,
			Files:       len(pkg.Files()),
		})
	}
	return out
}
