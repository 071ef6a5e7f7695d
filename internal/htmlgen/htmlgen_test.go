package htmlgen

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/seedbank/internal/testutil/testlog"
)

func TestCreateInteractivePageRendersExercises(t *testing.T) {
	testlog.Start(t)
	g := NewGenerator()
	page, err := g.CreateInteractivePage("Siklus Air", "<p>Air menguap.</p>", []Exercise{
		{Question: "Apa yang terjadi saat air dipanaskan?", Options: []string{"Menguap", "Membeku"}, CorrectAnswer: "Menguap"},
		{Kind: ShortAnswer, Question: "Sebutkan wujud es", CorrectAnswer: "padat"},
		{Options: []string{"a"}},
	})
	if err != nil {
		t.Fatalf("create page: %v", err)
	}
	for _, want := range []string{
		`<html lang="id">`,
		"<title>Siklus Air</title>",
		"<p>Air menguap.</p>",
		`name="exercise0" value="Menguap"`,
		`id="option0_1"`,
		`<input type="text" class="answer" name="exercise1">`,
		`data-answer="padat"`,
		missingQuestion,
		`id="feedback2"`,
	} {
		if !strings.Contains(page, want) {
			t.Fatalf("page missing %q", want)
		}
	}
}

func TestCreateInteractivePageEscapesUntrustedFields(t *testing.T) {
	testlog.Start(t)
	page, err := NewGenerator().CreateInteractivePage("<script>x</script>", "", []Exercise{
		{Question: "q", Options: []string{`"><img>`}, CorrectAnswer: `'); alert(1); //`},
	})
	if err != nil {
		t.Fatalf("create page: %v", err)
	}
	if strings.Contains(page, "<script>x</script>") || strings.Contains(page, `"><img>`) {
		t.Fatalf("title or option not escaped")
	}
}

func TestCreateInteractivePageRejectsBadExercises(t *testing.T) {
	testlog.Start(t)
	g := NewGenerator()
	if _, err := g.CreateInteractivePage("t", "", []Exercise{{Kind: MultipleChoice, Question: "q"}}); !errors.Is(err, ErrNoOptions) {
		t.Fatalf("expected ErrNoOptions, got %v", err)
	}
	if _, err := g.CreateInteractivePage("t", "", []Exercise{{Kind: "essay"}}); err == nil {
		t.Fatalf("expected unknown kind error")
	}
}

func TestSavePageCreatesParents(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "lessons", "water.html")
	if err := NewGenerator().SavePage("<html></html>", path); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil || string(raw) != "<html></html>" {
		t.Fatalf("unexpected file: %q %v", raw, err)
	}
}
