package engine

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/wildfunctions/linear_gp/pkg/trainer"
)

// GenerationReport summarizes one generation before it evolves.
type GenerationReport struct {
	Generation int             `json:"generation"`
	Stats      []trainer.Stats `json:"stats"`
	Best       trainer.Summary `json:"best"`
}

// FinalReport summarizes the entire run.
type FinalReport struct {
	Config          Config             `json:"config"`
	RunID           string             `json:"run_id,omitempty"`
	StartGeneration int                `json:"start_generation"`
	Generation      int                `json:"generation"`
	Elapsed         string             `json:"elapsed"`
	Stats           []trainer.Stats    `json:"stats"`
	Best            trainer.Summary    `json:"best"`
	Generations     []GenerationReport `json:"generations,omitempty"`
}

// formatOutcomes renders outcomes in task name order.
func formatOutcomes(o map[string]float64) string {
	names := make([]string, 0, len(o))
	for k := range o {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, k := range names {
		parts[i] = fmt.Sprintf("%s=%.4g", k, o[k])
	}
	return strings.Join(parts, " ")
}

func formatGeneration(r GenerationReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "gen %4d", r.Generation)
	for _, s := range r.Stats {
		fmt.Fprintf(&b, " | %s min %.4g avg %.4g max %.4g", s.Task, s.Min, s.Average, s.Max)
	}
	fmt.Fprintf(&b, " | best #%d (%d/%d effective)", r.Best.ID, r.Best.Effective, r.Best.Size)
	return b.String()
}

// WriteTextReport writes a generation report in human-readable format.
func WriteTextReport(w io.Writer, r GenerationReport) {
	fmt.Fprintln(w, formatGeneration(r))
}

// WriteTextFinal writes the final report in human-readable format.
func WriteTextFinal(w io.Writer, r FinalReport) {
	for _, g := range r.Generations {
		WriteTextReport(w, g)
	}
	fmt.Fprintln(w, "\n========== FINAL RESULT ==========")
	if r.RunID != "" {
		fmt.Fprintf(w, "Run:         %s\n", r.RunID)
	}
	fmt.Fprintf(w, "Mode:        %s\n", r.Config.Mode)
	fmt.Fprintf(w, "Tasks:       %s (%s)\n", strings.Join(r.Config.Tasks, ", "), r.Config.Aggregation)
	fmt.Fprintf(w, "Generations: %d -> %d in %s\n", r.StartGeneration, r.Generation, r.Elapsed)
	fmt.Fprintf(w, "Seed:        %d\n", r.Config.Seed)
	for _, s := range r.Stats {
		fmt.Fprintf(w, "%-12s min %.4g avg %.4g max %.4g over %d\n", s.Task+":", s.Min, s.Average, s.Max, s.Count)
	}
	fmt.Fprintf(w, "Best:        #%d from gen %d | %s\n", r.Best.ID, r.Best.GenCreated, formatOutcomes(r.Best.Outcomes))
	fmt.Fprintf(w, "Size:        %d instructions, %d effective\n", r.Best.Size, r.Best.Effective)
	fmt.Fprintln(w, "==================================")
	fmt.Fprint(w, r.Best.Listing)
}

// WriteJSONFinal writes the final report as JSON.
func WriteJSONFinal(w io.Writer, r FinalReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
