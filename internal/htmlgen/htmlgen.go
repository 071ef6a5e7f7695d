// Package htmlgen renders self-contained interactive lesson pages that work
// offline: inline CSS and script, no external assets.
package htmlgen

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

type ExerciseKind string

const (
	MultipleChoice ExerciseKind = "multiple_choice"
	ShortAnswer    ExerciseKind = "short_answer"
)

const missingQuestion = "Pertanyaan tidak tersedia"

var ErrNoOptions = errors.New("htmlgen: multiple choice exercise has no options")

// Exercise is one self-checking question. Kind defaults to MultipleChoice
// when options are present and ShortAnswer otherwise.
type Exercise struct {
	Kind          ExerciseKind `json:"kind" toml:"kind"`
	Question      string       `json:"question" toml:"question"`
	Options       []string     `json:"options" toml:"options"`
	CorrectAnswer string       `json:"correct_answer" toml:"correct_answer"`
}

func (e Exercise) kind() ExerciseKind {
	if e.Kind != "" {
		return e.Kind
	}
	if len(e.Options) > 0 {
		return MultipleChoice
	}
	return ShortAnswer
}

type Generator struct {
	Lang string
	tmpl *template.Template
}

func NewGenerator() *Generator {
	return &Generator{
		Lang: "id",
		tmpl: template.Must(template.New("page").Parse(pageTemplate)),
	}
}

type exerciseView struct {
	Index    int
	Question string
	Choice   bool
	Options  []string
	Answer   string
}

type pageView struct {
	Lang      string
	Title     string
	Content   template.HTML
	Exercises []exerciseView
}

// CreateInteractivePage renders title, trusted HTML content and exercises.
func (g *Generator) CreateInteractivePage(title, content string, exercises []Exercise) (string, error) {
	view := pageView{
		Lang:      g.Lang,
		Title:     title,
		Content:   template.HTML(content),
		Exercises: make([]exerciseView, 0, len(exercises)),
	}
	for i, ex := range exercises {
		kind := ex.kind()
		switch kind {
		case MultipleChoice:
			if len(ex.Options) == 0 {
				return "", fmt.Errorf("%w: exercise %d", ErrNoOptions, i)
			}
		case ShortAnswer:
		default:
			return "", fmt.Errorf("htmlgen: exercise %d: unknown kind %q", i, ex.Kind)
		}
		question := ex.Question
		if question == "" {
			question = missingQuestion
		}
		view.Exercises = append(view.Exercises, exerciseView{
			Index:    i,
			Question: question,
			Choice:   kind == MultipleChoice,
			Options:  ex.Options,
			Answer:   ex.CorrectAnswer,
		})
	}

	var buf bytes.Buffer
	if err := g.tmpl.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SavePage writes html to path, creating parent directories.
func (g *Generator) SavePage(html, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return err
	}
	log.Info().Str("path", path).Int("bytes", len(html)).Msg("html page saved")
	return nil
}

const pageTemplate = `<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; background-color: #f5f5f5; }
        .container { max-width: 800px; margin: 0 auto; background-color: white; padding: 30px; border-radius: 10px; box-shadow: 0 0 10px rgba(0,0,0,0.1); }
        h1 { color: #2c3e50; border-bottom: 2px solid #3498db; padding-bottom: 10px; }
        .content { line-height: 1.6; color: #333; }
        .exercise { background-color: #ecf0f1; padding: 20px; margin: 20px 0; border-radius: 5px; }
        .question { font-weight: bold; margin-bottom: 10px; }
        .options { margin-left: 20px; }
        .option { margin: 5px 0; }
        button { background-color: #3498db; color: white; border: none; padding: 10px 20px; border-radius: 5px; cursor: pointer; font-size: 16px; }
        button:hover { background-color: #2980b9; }
        .feedback { margin-top: 10px; padding: 10px; border-radius: 5px; display: none; }
        .correct { background-color: #d4edda; color: #155724; border: 1px solid #c3e6cb; }
        .incorrect { background-color: #f8d7da; color: #721c24; border: 1px solid #f5c6cb; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <div class="content">
            {{.Content}}
        </div>
{{range .Exercises}}
        <div class="exercise" id="exercise{{.Index}}" data-answer="{{.Answer}}">
            <div class="question">{{.Question}}</div>
{{- if .Choice}}
            <div class="options">
{{- $ex := .Index}}{{range $i, $opt := .Options}}
                <div class="option">
                    <input type="radio" id="option{{$ex}}_{{$i}}" name="exercise{{$ex}}" value="{{$opt}}">
                    <label for="option{{$ex}}_{{$i}}">{{$opt}}</label>
                </div>
{{- end}}
            </div>
{{- else}}
            <input type="text" class="answer" name="exercise{{.Index}}">
{{- end}}
            <button onclick="checkAnswer({{.Index}})">Periksa Jawaban</button>
            <div id="feedback{{.Index}}" class="feedback"></div>
        </div>
{{end}}
    </div>

    <script>
        function checkAnswer(id) {
            const box = document.getElementById("exercise" + id);
            const feedback = document.getElementById("feedback" + id);
            const chosen = box.querySelector('input[type="radio"]:checked') || box.querySelector('input.answer');
            const value = chosen ? chosen.value.trim() : "";
            if (value === "") {
                feedback.textContent = "Silakan pilih jawaban terlebih dahulu.";
                feedback.className = "feedback incorrect";
                feedback.style.display = "block";
                return;
            }
            if (value.toLowerCase() === box.dataset.answer.trim().toLowerCase()) {
                feedback.textContent = "Benar! Jawaban Anda tepat.";
                feedback.className = "feedback correct";
            } else {
                feedback.textContent = "Jawaban salah. Coba lagi!";
                feedback.className = "feedback incorrect";
            }
            feedback.style.display = "block";
        }
    </script>
</body>
</html>
`
