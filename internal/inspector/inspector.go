// Package inspector renders a stable, read-only text dump of the page
// table's current state.
package inspector

import (
	"fmt"
	"io"

	"github.com/mcelog-go/pager/internal/bucket"
	"github.com/mcelog-go/pager/internal/pagetable"
)

// Dump writes one line per live record in address order, preceded by a
// header line before the first record:
// "<hex-addr>: total <count> seen \"<bucket-summary>\" <state>[ triggered]".
func Dump(w io.Writer, table *pagetable.Table, cfg bucket.Config) error {
	first := true

	var writeErr error

	table.Iter(func(rec *pagetable.Record) bool {
		if first {
			if _, writeErr = fmt.Fprintln(w, "Per page corrected memory statistics:"); writeErr != nil {
				return false
			}

			first = false
		}

		triggered := ""
		if rec.Triggered {
			triggered = " triggered"
		}

		_, writeErr = fmt.Fprintf(w, "%#x: total %d seen %q %s%s\n",
			rec.Addr,
			rec.ErrorCount,
			bucket.Summary(cfg, &rec.Bucket),
			rec.State.String(),
			triggered,
		)

		return writeErr == nil
	})

	return writeErr
}
