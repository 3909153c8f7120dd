package tracking

import (
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/syssam/fixup/graph"
)

// EntryView is the serializable form of an entry, used by DebugView.
type EntryView struct {
	Entity      string            `yaml:"entity"`
	Key         string            `yaml:"key"`
	State       string            `yaml:"state"`
	Properties  map[string]string `yaml:"properties,omitempty"`
	Navigations map[string]string `yaml:"navigations,omitempty"`
}

// View returns a snapshot of the entry. Unset values render as "?",
// navigations as the kinds and keys of their targets.
func (e *Entry) View() EntryView {
	v := EntryView{
		Entity: e.typ.Name,
		Key:    formatKey(e.Key()),
		State:  e.state.String(),
	}
	for _, f := range e.typ.Fields {
		if f.Key {
			continue
		}
		if v.Properties == nil {
			v.Properties = make(map[string]string)
		}
		v.Properties[f.Name] = formatKey([]any{f.Read(e.obj, e.shadow)})
	}
	for _, nav := range navigationsOf(e.tracker.graph, e.typ) {
		if v.Navigations == nil {
			v.Navigations = make(map[string]string)
		}
		targets := nav.Targets(e.obj)
		refs := make([]string, len(targets))
		for i, obj := range targets {
			refs[i] = nav.Target.Name + "(" + formatKey(nav.Target.KeyOf(obj)) + ")"
		}
		slices.Sort(refs)
		if nav.Collection {
			v.Navigations[nav.Name] = "[" + strings.Join(refs, ", ") + "]"
		} else {
			v.Navigations[nav.Name] = strings.Join(refs, "")
		}
	}
	return v
}

// DebugView renders the tracked entities as YAML, sorted by kind and key so
// the output is stable across runs.
func (t *Tracker) DebugView() ([]byte, error) {
	views := make([]EntryView, 0, len(t.order))
	for _, e := range t.order {
		views = append(views, e.View())
	}
	slices.SortStableFunc(views, func(a, b EntryView) int {
		if c := strings.Compare(a.Entity, b.Entity); c != 0 {
			return c
		}
		return strings.Compare(a.Key, b.Key)
	})
	out, err := yaml.Marshal(views)
	if err != nil {
		return nil, fmt.Errorf("fixup: debug view: %w", err)
	}
	return out, nil
}

func navigationsOf(g *graph.Graph, t *graph.Type) []*graph.Navigation {
	var navs []*graph.Navigation
	for _, r := range g.DependentOf(t) {
		if r.ToPrincipal != nil {
			navs = append(navs, r.ToPrincipal)
		}
	}
	for _, r := range g.PrincipalOf(t) {
		if r.ToDependents != nil {
			navs = append(navs, r.ToDependents)
		}
	}
	return navs
}
