package audit

import (
	"fmt"

	"github.com/montanaflynn/stats"
)

// LedgerStats aggregates the recorded runs: how big transforms are and
// how much of each narrative survives selection.
type LedgerStats struct {
	Runs          int     `json:"runs"`
	MeanAtoms     float64 `json:"mean_atoms"`
	MedianAtoms   float64 `json:"median_atoms"`
	MeanInclusion float64 `json:"mean_inclusion_rate"`
	P90Excluded   float64 `json:"p90_excluded"`
}

// Stats computes ledger-wide aggregates over every recorded run.
func (l *Ledger) Stats() (*LedgerStats, error) {
	rows, err := l.db.Query("SELECT atoms, included, excluded FROM runs")
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var atoms, inclusion, excluded []float64
	for rows.Next() {
		var a, inc, exc int
		if err := rows.Scan(&a, &inc, &exc); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		atoms = append(atoms, float64(a))
		excluded = append(excluded, float64(exc))
		if a > 0 {
			inclusion = append(inclusion, float64(inc)/float64(a))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s := &LedgerStats{Runs: len(atoms)}
	if len(atoms) == 0 {
		return s, nil
	}
	s.MeanAtoms, _ = stats.Mean(atoms)
	s.MedianAtoms, _ = stats.Median(atoms)
	s.P90Excluded, _ = stats.Percentile(excluded, 90)
	if len(inclusion) > 0 {
		s.MeanInclusion, _ = stats.Mean(inclusion)
	}
	return s, nil
}
