package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/jward/understory"
)

// formatStats prints the snapshot totals and per-language breakdown as
// aligned columns.
func formatStats(w io.Writer, stats *understory.Stats) {
	fmt.Fprintf(w, "Files: %d  Lines: %d  Bytes: %d\n\n", stats.TotalFiles, stats.TotalLOC, stats.TotalSize)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LANGUAGE\tFILES\tLINES\tBYTES")
	for _, lang := range sortedKeys(stats.FilesByLanguage) {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n",
			lang, stats.FilesByLanguage[lang], stats.LOCByLanguage[lang], stats.SizeByLanguage[lang])
	}
	tw.Flush()

	if len(stats.LintViolations) > 0 {
		fmt.Fprintln(w)
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "LINT RULE\tCOUNT")
		for _, rule := range sortedKeys(stats.LintViolations) {
			fmt.Fprintf(tw, "%s\t%d\n", rule, stats.LintViolations[rule])
		}
		tw.Flush()
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
