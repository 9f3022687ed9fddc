package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/xtpl/internal/compose"
	"github.com/conneroisu/xtpl/internal/registry"
	"github.com/conneroisu/xtpl/internal/resolved"
)

var inspectCmd = &cobra.Command{
	Use:     "inspect NAME",
	Aliases: []string{"i"},
	Short:   "Show the partials and dependencies of a template file",
	Long: `Resolve a template file and describe it: the file it extends, the files it
includes, and every partial with the file that defines it and its wrapper.

Examples:
  xtpl inspect pages/home               # Table output
  xtpl inspect pages/home -o yaml       # YAML output
  xtpl inspect pages/home --source      # Include the composed source of each partial`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

var (
	inspectFlags  *StandardFlags
	inspectSource bool
)

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectFlags = AddStandardFlags(inspectCmd, "output")
	inspectCmd.Flags().BoolVar(&inspectSource, "source", false, "Include the composed source of each partial")
}

// TemplateReport describes one resolved template file.
type TemplateReport struct {
	ID           string          `json:"id" yaml:"id"`
	Extends      string          `json:"extends,omitempty" yaml:"extends,omitempty"`
	Includes     []string        `json:"includes,omitempty" yaml:"includes,omitempty"`
	Dependencies []string        `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Data         []string        `json:"data,omitempty" yaml:"data,omitempty"`
	Partials     []PartialReport `json:"partials" yaml:"partials"`
}

// PartialReport describes one partial of a template.
type PartialReport struct {
	Name      string `json:"name" yaml:"name"`
	DefinedIn string `json:"defined_in" yaml:"defined_in"`
	Wrapper   string `json:"wrapper,omitempty" yaml:"wrapper,omitempty"`
	Source    string `json:"source,omitempty" yaml:"source,omitempty"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	env, err := newEnvironment(nil)
	if err != nil {
		return err
	}

	l := env.newLoader()
	id, _ := env.engine.Options().ParseName(args[0])
	templates, err := l.Resolve(cmd.Context(), []string{id})
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", id, err)
	}

	report, err := newTemplateReport(l.Engine(), templates[0], inspectSource)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch inspectFlags.OutputFormat {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	case "yaml":
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)
		defer encoder.Close()
		return encoder.Encode(report)
	default:
		return writeReportTable(out, report)
	}
}

func newTemplateReport(engine *compose.Engine, t *resolved.Template, withSource bool) (*TemplateReport, error) {
	report := &TemplateReport{
		ID:           t.ID,
		Dependencies: registry.Dependencies(t),
	}
	if t.Inherits != nil {
		report.Extends = t.Inherits.ParentID
	}
	for _, alias := range t.Includes.Keys() {
		if t.Inherits != nil && alias == t.Inherits.Alias {
			continue
		}
		if inc, ok := t.Includes.Get(alias); ok {
			report.Includes = append(report.Includes, alias+"="+inc.ID)
		}
	}
	for key := range t.Data {
		report.Data = append(report.Data, key)
	}
	sort.Strings(report.Data)

	for _, name := range t.Names() {
		partial := PartialReport{Name: name, DefinedIn: definedIn(t, name)}
		partial.Wrapper, _ = t.WrapMap.Get(name)
		if withSource {
			text, err := engine.Content(t, name, nil)
			if err != nil {
				return nil, err
			}
			partial.Source = text
		}
		report.Partials = append(report.Partials, partial)
	}
	return report, nil
}

// definedIn walks the extend chain up to the file whose own layer defines
// the partial.
func definedIn(t *resolved.Template, name string) string {
	for cur := t; cur != nil; {
		if cur.Partials.Owns(name) {
			return cur.ID
		}
		if cur.Inherits == nil {
			break
		}
		parent, ok := cur.Includes.Get(cur.Inherits.Alias)
		if !ok {
			break
		}
		cur = parent
	}
	return t.ID
}

func writeReportTable(out io.Writer, report *TemplateReport) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%s\n", report.ID)
	if report.Extends != "" {
		fmt.Fprintf(w, "Extends:\t%s\n", report.Extends)
	}
	if len(report.Includes) > 0 {
		fmt.Fprintf(w, "Includes:\t%s\n", strings.Join(report.Includes, ", "))
	}
	if len(report.Data) > 0 {
		fmt.Fprintf(w, "Data:\t%s\n", strings.Join(report.Data, ", "))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "PARTIAL\tDEFINED IN\tWRAPPER")
	for _, p := range report.Partials {
		wrapper := p.Wrapper
		if wrapper == "" {
			wrapper = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, p.DefinedIn, wrapper)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	for _, p := range report.Partials {
		if p.Source != "" {
			fmt.Fprintf(out, "\n--- %s ---\n%s\n", p.Name, p.Source)
		}
	}
	return nil
}
