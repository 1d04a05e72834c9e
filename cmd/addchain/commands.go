package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"addchain.mleku.dev"
)

// searchReport is the result of the search command
type searchReport struct {
	Target      string   `json:"target" yaml:"target"`
	Length      int      `json:"length" yaml:"length"`
	LowerBound  int      `json:"lower_bound" yaml:"lower_bound"`
	Greedy      int      `json:"greedy_length" yaml:"greedy_length"`
	Doubles     int      `json:"doubles" yaml:"doubles"`
	Adds        int      `json:"adds" yaml:"adds"`
	Nodes       int      `json:"nodes" yaml:"nodes"`
	Truncated   bool     `json:"truncated" yaml:"truncated"`
	Elapsed     string   `json:"elapsed" yaml:"elapsed"`
	Fingerprint string   `json:"fingerprint" yaml:"fingerprint"`
	Chain       []string `json:"chain" yaml:"chain"`
	Steps       []string `json:"steps" yaml:"steps"`
}

// stepsReport is the result of the steps command
type stepsReport struct {
	Length  int      `json:"length" yaml:"length"`
	Doubles int      `json:"doubles" yaml:"doubles"`
	Adds    int      `json:"adds" yaml:"adds"`
	Steps   []string `json:"steps" yaml:"steps"`
}

func searchCmd(cfg *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "search <n>",
		Short: "Search a short addition chain for n",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseInt(args[0])
			if err != nil {
				return err
			}
			opts, err := cfg.options()
			if err != nil {
				return err
			}
			defer opts.Logger.Sync() //nolint:errcheck

			var reg *prometheus.Registry
			if cfg.v.GetBool("metrics") {
				reg = prometheus.NewRegistry()
				opts.Metrics = addchain.NewMetrics(reg)
			}

			c, st, err := addchain.Search(cmd.Context(), n, opts)
			if err != nil {
				return err
			}
			steps, err := addchain.BuildSteps(c)
			if err != nil {
				return errors.WithMessage(err, "search returned an invalid chain")
			}
			doubles := addchain.Doublings(steps)

			report := searchReport{
				Target:      n.String(),
				Length:      c.Length(),
				LowerBound:  st.LowerBound,
				Greedy:      st.GreedyLength,
				Doubles:     doubles,
				Adds:        len(steps) - doubles,
				Nodes:       st.Nodes,
				Truncated:   st.Truncated,
				Elapsed:     formatDuration(st.Elapsed),
				Fingerprint: c.FingerprintHex(),
				Chain:       chainStrings(c),
				Steps:       stepStrings(steps),
			}
			out := cmd.OutOrStdout()
			if err := render(out, cfg.output(), report, func(w io.Writer) {
				fmt.Fprintf(w, "target:      %s\n", report.Target)
				fmt.Fprintf(w, "length:      %d (lower bound %d, greedy %d)\n",
					report.Length, report.LowerBound, report.Greedy)
				fmt.Fprintf(w, "operations:  %d doubles, %d adds\n", report.Doubles, report.Adds)
				fmt.Fprintf(w, "search:      %d nodes in %s", report.Nodes, report.Elapsed)
				if report.Truncated {
					fmt.Fprint(w, " (truncated)")
				}
				fmt.Fprintln(w)
				fmt.Fprintf(w, "fingerprint: %s\n", report.Fingerprint)
				fmt.Fprintf(w, "chain:       %s\n", strings.Join(report.Chain, " "))
				fmt.Fprintf(w, "steps:       %s\n", strings.Join(report.Steps, " "))
			}); err != nil {
				return err
			}
			if reg != nil {
				return printMetrics(out, reg)
			}
			return nil
		},
	}
}

func stepsCmd(cfg *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "steps <e0> <e1> ...",
		Short: "Validate a chain and decompose it into double/add steps",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := make(addchain.Chain, len(args))
			for i, a := range args {
				x, err := parseInt(a)
				if err != nil {
					return err
				}
				c[i] = x
			}
			steps, err := addchain.BuildSteps(c)
			if err != nil {
				return err
			}
			doubles := addchain.Doublings(steps)
			report := stepsReport{
				Length:  len(steps),
				Doubles: doubles,
				Adds:    len(steps) - doubles,
				Steps:   stepStrings(steps),
			}
			return render(cmd.OutOrStdout(), cfg.output(), report, func(w io.Writer) {
				for i, s := range report.Steps {
					fmt.Fprintf(w, "%3d  %-12s %s\n", i+1, s, c[i+1])
				}
			})
		},
	}
}

func tableCmd(cfg *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "table",
		Short: "Print the precomputed shortest chains for small integers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			type entry struct {
				N      uint64   `json:"n" yaml:"n"`
				Length int      `json:"length" yaml:"length"`
				Chain  []string `json:"chain" yaml:"chain"`
			}
			var entries []entry
			for n := uint64(1); n < addchain.TableLimit; n++ {
				c, ok := addchain.SmallChain(n)
				if !ok {
					continue
				}
				entries = append(entries, entry{N: n, Length: c.Length(), Chain: chainStrings(c)})
			}
			return render(cmd.OutOrStdout(), cfg.output(), entries, func(w io.Writer) {
				for _, e := range entries {
					fmt.Fprintf(w, "%4d %3d  %s\n", e.N, e.Length, strings.Join(e.Chain, " "))
				}
			})
		},
	}
}

func boundCmd(cfg *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "bound <n>",
		Short: "Print the proven lower bound on the chain length for n",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseInt(args[0])
			if err != nil {
				return err
			}
			if n.Sign() <= 0 {
				return errors.Wrapf(addchain.ErrNonPositive, "got %s", n)
			}
			lb := addchain.LowerBound(n)
			return render(cmd.OutOrStdout(), cfg.output(), map[string]int{"lower_bound": lb}, func(w io.Writer) {
				fmt.Fprintln(w, lb)
			})
		},
	}
}

// render writes v in the requested format, using text for the plain format
func render(w io.Writer, format string, v any, text func(io.Writer)) error {
	switch format {
	case "", "text":
		text(w)
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return errors.Errorf("unknown output format %q", format)
}

// printMetrics writes every gathered sample as "name{labels} value"
func printMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return errors.Wrap(err, "gathering metrics")
	}
	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			switch {
			case m.GetCounter() != nil:
				lines = append(lines, fmt.Sprintf("%s %g", name, m.GetCounter().GetValue()))
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				lines = append(lines,
					fmt.Sprintf("%s_count %d", name, h.GetSampleCount()),
					fmt.Sprintf("%s_sum %g", name, h.GetSampleSum()))
			}
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
	return nil
}

func chainStrings(c addchain.Chain) []string {
	out := make([]string, len(c))
	for i, x := range c {
		out[i] = x.String()
	}
	return out
}

func stepStrings(steps []addchain.Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.String()
	}
	return out
}
