package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/syssam/fixup/examples/catalog"
	"github.com/syssam/fixup/graph"
)

type relationshipView struct {
	Name         string `yaml:"name"`
	Principal    string `yaml:"principal"`
	Dependent    string `yaml:"dependent"`
	ForeignKey   string `yaml:"foreign_key"`
	Cardinality  string `yaml:"cardinality"`
	Shape        string `yaml:"shape"`
	ToPrincipal  string `yaml:"to_principal,omitempty"`
	ToDependents string `yaml:"to_dependents,omitempty"`
}

func newModelCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "model",
		Short: "Print the relationships of the catalog model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeModel(cmd.OutOrStdout(), opts.format(), catalog.MustModel())
		},
	}
}

func writeModel(w io.Writer, format string, g *graph.Graph) error {
	if format == "yaml" {
		views := make([]relationshipView, 0, len(g.Relationships()))
		for _, r := range g.Relationships() {
			v := relationshipView{
				Name:        r.Name,
				Principal:   r.Principal.Name,
				Dependent:   r.Dependent.Name,
				Cardinality: r.Cardinality.String(),
				Shape:       r.Shape().String(),
			}
			for i, f := range r.ForeignKey {
				if i > 0 {
					v.ForeignKey += ","
				}
				v.ForeignKey += f.Name
			}
			if r.ToPrincipal != nil {
				v.ToPrincipal = r.ToPrincipal.String()
			}
			if r.ToDependents != nil {
				v.ToDependents = r.ToDependents.String()
			}
			views = append(views, v)
		}
		out, err := yaml.Marshal(views)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	}
	for _, r := range g.Relationships() {
		if _, err := fmt.Fprintln(w, r); err != nil {
			return err
		}
	}
	return nil
}
