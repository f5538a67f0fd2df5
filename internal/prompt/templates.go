package prompt

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/diegoturueno/provokers-tool/internal/models"
)

// ErrTemplateNotFound is returned when no loader has a template for a phase.
var ErrTemplateNotFound = errors.New("template not found")

//go:embed templates/*.md
var embedded embed.FS

// Loader returns the prompt template of a phase.
type Loader interface {
	Load(phase models.Phase) (string, error)
}

// DirLoader reads <Dir>/<phase>.md from disk on every call, so edits to the
// prompt files apply without a restart.
type DirLoader struct {
	Dir string
}

// Load reads the template file of a phase.
func (d DirLoader) Load(phase models.Phase) (string, error) {
	data, err := os.ReadFile(filepath.Join(d.Dir, string(phase)+".md"))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%s in %s: %w", phase, d.Dir, ErrTemplateNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read template %s: %w", phase, err)
	}
	return string(data), nil
}

// EmbeddedLoader serves the default templates compiled into the binary.
type EmbeddedLoader struct{}

// Load returns the built-in template of a phase.
func (EmbeddedLoader) Load(phase models.Phase) (string, error) {
	data, err := embedded.ReadFile("templates/" + string(phase) + ".md")
	if err != nil {
		return "", fmt.Errorf("%s: %w", phase, ErrTemplateNotFound)
	}
	return string(data), nil
}

// Chain tries each loader in order and returns the first template found.
// Errors other than ErrTemplateNotFound stop the search.
func Chain(loaders ...Loader) Loader {
	return chain(loaders)
}

type chain []Loader

func (c chain) Load(phase models.Phase) (string, error) {
	for _, l := range c {
		tmpl, err := l.Load(phase)
		if err == nil {
			return tmpl, nil
		}
		if !errors.Is(err, ErrTemplateNotFound) {
			return "", err
		}
	}
	return "", fmt.Errorf("%s: %w", phase, ErrTemplateNotFound)
}

// NewLoader returns the loader used at runtime: templates in dir override the
// built-in ones. An empty dir means built-in only.
func NewLoader(dir string) Loader {
	if dir == "" {
		return EmbeddedLoader{}
	}
	return Chain(DirLoader{Dir: dir}, EmbeddedLoader{})
}
