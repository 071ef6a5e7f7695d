package packaging

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/danmuck/seedbank/internal/mesh"
	"github.com/danmuck/seedbank/internal/testutil/testlog"
	"github.com/google/uuid"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestCreatePackageMetadata(t *testing.T) {
	testlog.Start(t)
	at := time.Date(2026, 3, 1, 9, 30, 15, 500, time.UTC)
	sys := NewSystem().WithClock(func() time.Time { return at })
	pkg := sys.CreatePackage("Water Cycle", "Evaporation basics", "K13", "Science")

	meta := pkg.Metadata()
	if _, err := uuid.Parse(meta.ID); err != nil {
		t.Fatalf("expected uuid id, got %q: %v", meta.ID, err)
	}
	if meta.Version != Version || !meta.CreatedAt.Equal(at.Truncate(time.Second)) {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
	list := sys.ListPackages()
	if len(list) != 1 || list[0].ID != meta.ID || list[0].Subject != "Science" || list[0].Files != 0 {
		t.Fatalf("unexpected listing: %+v", list)
	}
}

func TestAddFileValidation(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	pkg := NewSystem().CreatePackage("t", "d", "c", "s")

	if err := pkg.AddFile(filepath.Join(dir, "missing.html"), "x.html"); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
	src := writeFile(t, dir, "lesson.html", "<p>hi</p>")
	for _, dst := range []string{"../escape.html", "/abs.html", MetadataName} {
		if err := pkg.AddFile(src, dst); !errors.Is(err, ErrInvalidDestination) {
			t.Fatalf("dst %q: expected ErrInvalidDestination, got %v", dst, err)
		}
	}
	if err := pkg.AddFile(dir, "d"); err == nil {
		t.Fatalf("expected directory to be rejected")
	}
	if err := pkg.AddFile(src, ""); err != nil {
		t.Fatalf("add default dst: %v", err)
	}
	if err := pkg.AddFile(src, "pages/./intro.html"); err != nil {
		t.Fatalf("add nested dst: %v", err)
	}
	if got, want := pkg.Files(), []string{"lesson.html", "pages/intro.html"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("files: got=%v want=%v", got, want)
	}
}

func TestSaveAndOpenRoundTrip(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	pkg := NewSystem().CreatePackage("Water Cycle", "Evaporation basics", "K13", "Science")
	if err := pkg.AddFile(writeFile(t, dir, "lesson.html", "<p>rain</p>"), "content/lesson.html"); err != nil {
		t.Fatalf("add: %v", err)
	}
	gone := writeFile(t, dir, "gone.mp4", "frames")
	if err := pkg.AddFile(gone, "video/gone.mp4"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := os.Remove(gone); err != nil {
		t.Fatalf("remove: %v", err)
	}

	out, err := pkg.Save(filepath.Join(dir, "bundles", "water"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if out != filepath.Join(dir, "bundles", "water.seed") {
		t.Fatalf("unexpected output path: %s", out)
	}

	bundle, err := Open(out)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	got, want := bundle.Metadata, pkg.Metadata()
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("created_at mismatch: got=%v want=%v", got.CreatedAt, want.CreatedAt)
	}
	got.CreatedAt, want.CreatedAt = time.Time{}, time.Time{}
	if got != want {
		t.Fatalf("metadata mismatch: got=%+v want=%+v", got, want)
	}
	if !reflect.DeepEqual(bundle.Files, []string{"content/lesson.html"}) {
		t.Fatalf("vanished sources must be skipped, got %v", bundle.Files)
	}
}

func TestPayloadIsStorableSeed(t *testing.T) {
	testlog.Start(t)
	pkg := NewSystem().CreatePackage("Fractions", "Halves and quarters", "K13", "Math")
	seed := pkg.Payload()
	if seed["title"] != "Fractions" || seed["id"] != pkg.Metadata().ID || seed["version"] != Version {
		t.Fatalf("unexpected payload: %v", seed)
	}

	node, err := mesh.NewNode("school1", mesh.RoleLeaf)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	if err := node.StoreSeed(pkg.Metadata().ID, seed); err != nil {
		t.Fatalf("store: %v", err)
	}
	if node.SeedCount() != 1 {
		t.Fatalf("expected planted package")
	}
}

func TestScanSkipsBrokenBundles(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	sys := NewSystem()
	for _, name := range []string{"b", "a"} {
		if _, err := sys.CreatePackage(name, "", "", "").Save(filepath.Join(dir, name)); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
	}
	writeFile(t, dir, "broken.seed", "not a zip")
	writeFile(t, dir, "notes.txt", "ignored")

	bundles, errs := Scan(dir)
	if len(bundles) != 2 || bundles[0].Metadata.Title != "a" || bundles[1].Metadata.Title != "b" {
		t.Fatalf("unexpected bundles: %+v", bundles)
	}
	if len(errs) != 1 {
		t.Fatalf("expected one broken bundle error, got %v", errs)
	}
}
