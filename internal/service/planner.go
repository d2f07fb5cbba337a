package service

import (
	"sort"

	"ktp-deploy/internal/model"
)

// Planner resolves a component name to its file mappings. Resolution is a
// pure lookup against the loaded configuration; no filesystem or network
// access happens here.
type Planner struct {
	paths map[string][]model.PathMapping
}

func NewPlanner(paths map[string][]model.PathMapping) *Planner {
	return &Planner{paths: paths}
}

// Resolve returns the ordered mappings for a component, or nil when the
// component is unknown or has no paths configured. Callers treat nil as
// "nothing to do", not as a failure.
func (p *Planner) Resolve(component string) []model.PathMapping {
	return p.paths[component]
}

// Components lists the configured component names, sorted.
func (p *Planner) Components() []string {
	names := make([]string, 0, len(p.paths))
	for name := range p.paths {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
