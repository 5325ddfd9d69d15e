// Package report renders fleet outcomes for terminals.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/vietddude/routefleet/internal/core/domain"
)

// Summary returns the one-line aggregate of a run.
func Summary(o *domain.FleetOutcome) string {
	return fmt.Sprintf("%d of %d sources loaded (%d errors)", o.Succeeded, o.Total, o.Failed)
}

// Write prints the summary line, preceded by a per-source table when perSource is set.
func Write(w io.Writer, o *domain.FleetOutcome, perSource bool) error {
	if perSource && len(o.Results) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintln(tw, "SOURCE\tSTATE\tROUTE\tATTEMPTS\tITEMS\tERROR")
		for _, r := range o.Results {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
				r.ID, r.State, r.Route, r.Attempts, r.Items, errorCell(r))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w)
	}

	_, err := fmt.Fprintln(w, Summary(o))
	return err
}

func errorCell(r domain.SourceResult) string {
	if r.Err == nil {
		return "-"
	}
	return r.Err.Error()
}
