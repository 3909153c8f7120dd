package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/syssam/fixup"
	"github.com/syssam/fixup/examples/catalog"
	"github.com/syssam/fixup/graph"
	"github.com/syssam/fixup/tracking"
)

// errDiverged is returned when at least one scenario did not converge.
var errDiverged = errors.New("scenarios diverged")

// report is the outcome of a matrix run.
type report struct {
	RunID     string    `yaml:"run_id"`
	Scenarios int       `yaml:"scenarios"`
	Converged int       `yaml:"converged"`
	Failures  []failure `yaml:"failures,omitempty"`
	Stats     stats     `yaml:"stats"`
	Elapsed   string    `yaml:"elapsed"`
}

type failure struct {
	Scenario string `yaml:"scenario"`
	Error    string `yaml:"error"`
}

type stats struct {
	ForeignKeyWrites int64 `yaml:"foreign_key_writes"`
	ReferenceWrites  int64 `yaml:"reference_writes"`
	CollectionWrites int64 `yaml:"collection_writes"`
	Orphans          int64 `yaml:"orphans"`
	DelayedFixups    int64 `yaml:"delayed_fixups"`
	Conflicts        int64 `yaml:"conflicts"`
}

func newMatrixCommand(opts *options) *cobra.Command {
	var (
		states        []string
		relationships []string
	)
	cmd := &cobra.Command{
		Use:   "matrix",
		Short: "Run every attach scenario and check that all of them converge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var parsed []fixup.EntityState
			for _, s := range states {
				state, err := fixup.ParseEntityState(s)
				if err != nil {
					return err
				}
				parsed = append(parsed, state)
			}
			logger, err := opts.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			g := catalog.MustModel()
			scenarios := catalog.Matrix(g, parsed...)
			if len(relationships) > 0 {
				scenarios = filter(scenarios, relationships)
			}
			rep, err := runMatrix(g, scenarios, opts.workers(), tracking.WithLogger(logger))
			if err != nil {
				return err
			}
			if err := writeReport(cmd.OutOrStdout(), opts.format(), rep); err != nil {
				return err
			}
			if len(rep.Failures) > 0 {
				return fmt.Errorf("%w: %d of %d", errDiverged, len(rep.Failures), rep.Scenarios)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&states, "states", nil, "entity states to attach with (default added,unchanged,modified)")
	cmd.Flags().StringSliceVar(&relationships, "relationship", nil, "restrict the run to these relationships")
	return cmd
}

func filter(scenarios []catalog.Scenario, relationships []string) []catalog.Scenario {
	var out []catalog.Scenario
	for _, s := range scenarios {
		for _, name := range relationships {
			if s.Relationship == name {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// runMatrix runs the scenarios on up to workers goroutines, each scenario on
// its own tracker.
func runMatrix(g *graph.Graph, scenarios []catalog.Scenario, workers int, opts ...tracking.Option) (*report, error) {
	start := time.Now()
	results := make([]catalog.Result, len(scenarios))
	grp := new(errgroup.Group)
	grp.SetLimit(workers)
	for i, s := range scenarios {
		grp.Go(func() error {
			res, err := catalog.Run(g, s, opts...)
			if err != nil {
				return fmt.Errorf("%s: %w", s, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	rep := &report{RunID: uuid.NewString(), Scenarios: len(scenarios)}
	for _, res := range results {
		if err := res.Converged(g); err != nil {
			rep.Failures = append(rep.Failures, failure{Scenario: res.Scenario.String(), Error: err.Error()})
		} else {
			rep.Converged++
		}
		rep.Stats.ForeignKeyWrites += res.Stats.ForeignKeyWrites
		rep.Stats.ReferenceWrites += res.Stats.ReferenceWrites
		rep.Stats.CollectionWrites += res.Stats.CollectionWrites
		rep.Stats.Orphans += res.Stats.Orphans
		rep.Stats.DelayedFixups += res.Stats.DelayedFixups
		rep.Stats.Conflicts += res.Stats.Conflicts
	}
	rep.Elapsed = time.Since(start).Round(time.Microsecond).String()
	return rep, nil
}

func writeReport(w io.Writer, format string, rep *report) error {
	if format == "yaml" {
		out, err := yaml.Marshal(rep)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: %d/%d scenarios converged in %s\n", rep.RunID, rep.Converged, rep.Scenarios, rep.Elapsed)
	for _, f := range rep.Failures {
		fmt.Fprintf(&b, "FAIL %s\n", f.Error)
	}
	s := rep.Stats
	fmt.Fprintf(&b, "writes: fk=%d refs=%d collections=%d orphans=%d delayed=%d conflicts=%d\n",
		s.ForeignKeyWrites, s.ReferenceWrites, s.CollectionWrites, s.Orphans, s.DelayedFixups, s.Conflicts)
	_, err := io.WriteString(w, b.String())
	return err
}
