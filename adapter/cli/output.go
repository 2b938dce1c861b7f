package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/felixgeelhaar/coachbook/pkg/observability"
)

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printMetrics(w io.Writer, samples []observability.Sample) {
	for _, s := range samples {
		name := s.Name
		if s.Tags != "" {
			name += "{" + s.Tags + "}"
		}
		if s.Kind == observability.KindTiming {
			fmt.Fprintf(w, "%s %s count=%d mean_ms=%.2f\n", s.Kind, name, s.Count, s.Value)
			continue
		}
		fmt.Fprintf(w, "%s %s %g\n", s.Kind, name, s.Value)
	}
}
