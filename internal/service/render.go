package service

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"ktp-deploy/internal/model"
)

// TemplateSuffix marks files in the templates directory that are rendered;
// everything else is ignored. The destination filename drops the suffix.
const TemplateSuffix = ".tmpl"

// RenderContext is the data every template sees. Rendering is pure and
// deterministic for identical inputs, which keeps re-deploys idempotent and
// dry-run previews honest.
type RenderContext struct {
	Profile   model.Profile
	Cluster   *model.Cluster
	Instance  model.ServerInstance
	ServerDir string
}

// Renderer renders profile-specific configs from a template directory.
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer parses every template in dir. A missing directory yields a nil
// renderer, which callers treat as "config deployment is a no-op".
func NewRenderer(dir string) (*Renderer, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read templates dir: %w", err)
	}

	templates := make(map[string]*template.Template)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), TemplateSuffix) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", entry.Name(), err)
		}
		tmpl, err := template.New(entry.Name()).Option("missingkey=zero").Parse(string(data))
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", entry.Name(), err)
		}
		templates[entry.Name()] = tmpl
	}

	return &Renderer{templates: templates}, nil
}

// Templates lists the template identifiers, sorted for stable deploy order.
func (r *Renderer) Templates() []string {
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render produces the config text for one template. No side effects.
func (r *Renderer) Render(name string, ctx RenderContext) (string, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown template: %s", name)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, ctx); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return sb.String(), nil
}

// DestName is the destination filename for a template identifier.
func DestName(templateName string) string {
	return strings.TrimSuffix(templateName, TemplateSuffix)
}
