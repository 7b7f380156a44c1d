package eval

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var methodLabels = map[Method]string{
	MethodSPARQL: "SPARQL",
	MethodText:   "Text",
	MethodLLM:    "LLM",
}

func categoryHeading(name string) string {
	if name == "all" {
		return "all queries"
	}
	if f, ok := strings.CutPrefix(name, "without_"); ok {
		return fmt.Sprintf("queries without '%s'", f)
	}
	if f, ok := strings.CutPrefix(name, "with_"); ok {
		return fmt.Sprintf("queries with '%s'", f)
	}
	return name
}

// WriteText renders the batch as plain text with metrics to three decimals.
func WriteText(w io.Writer, batch *BatchReport, colored bool) error {
	title := color.New(color.Bold)
	section := color.New(color.FgCyan)
	fail := color.New(color.FgRed)
	for _, c := range []*color.Color{title, section, fail} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	for _, f := range batch.Files {
		if err := writeFileText(w, f, title, section); err != nil {
			return err
		}
	}
	for _, f := range batch.Failures {
		if _, err := fmt.Fprintf(w, "%s %s: %s\n", fail.Sprint("FAILED"), f.File, f.Error); err != nil {
			return err
		}
	}
	return nil
}

// WriteFileText renders a single file report.
func WriteFileText(w io.Writer, report FileReport) error {
	plain := color.New()
	plain.DisableColor()
	return writeFileText(w, report, plain, plain)
}

func writeFileText(w io.Writer, f FileReport, title, section *color.Color) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", title.Sprintf("File: %s", f.File))
	for _, c := range f.Categories {
		fmt.Fprintf(&b, "%s\n", section.Sprintf("Results for %s:", categoryHeading(c.Filter)))
		fmt.Fprintf(&b, "Number of queries: %d\n", c.QueryCount)
		for _, s := range c.Methods {
			fmt.Fprintf(&b, "%s - Precision: %.3f, Recall: %.3f, F1: %.3f (evaluated: %d)\n",
				methodLabels[s.Method], s.Precision, s.Recall, s.F1, s.Count)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteJSON writes the batch with exact fractions next to the float metrics.
func WriteJSON(w io.Writer, batch *BatchReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(batch)
}
