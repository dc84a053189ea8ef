package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"plainview/internal/model"
)

// ConfidenceStats summarizes the camera confidence distribution across
// a report's events.
type ConfidenceStats struct {
	Events int     `json:"events"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P90    float64 `json:"p90"`
}

// VerifyResult is the outcome of re-checking one report.
type VerifyResult struct {
	Path       string          `json:"path,omitempty"`
	RunID      string          `json:"run_id"`
	OK         bool            `json:"ok"`
	Problems   []string        `json:"problems,omitempty"`
	Confidence ConfidenceStats `json:"confidence"`
}

// Verify re-checks a report against the output contract: every atom
// routed exactly once, summary counts consistent with the partition,
// preserved quotes attributed, quarantined quotes carrying a reason.
// The checks are recomputed from the report's own data, never trusted
// from the run that produced it.
func Verify(rep *model.Report) *VerifyResult {
	res := &VerifyResult{RunID: rep.RunID}
	if rep.Store == nil || rep.Selection == nil {
		res.Problems = append(res.Problems, "report missing store or selection")
		return res
	}
	store, sel := rep.Store, rep.Selection

	// 1. Completeness and single routing, category by category.
	checkPartition(res, "events", idsOfEvents(store), &sel.Events)
	checkPartition(res, "entities", idsOfEntities(store), &sel.Entities)
	checkPartition(res, "quotes", idsOfQuotes(store), &sel.Quotes)
	checkPartition(res, "timeline", idsOfTimeline(store), &sel.Timeline)
	checkPartition(res, "statements", idsOfStatements(store), &sel.Statements)

	// 2. Summary counts must agree with the partition.
	included := sel.IncludedCount()
	excluded := sel.ExcludedCount()
	if rep.Counts.Atoms != store.Len() {
		res.Problems = append(res.Problems,
			fmt.Sprintf("counts.atoms %d does not match store size %d", rep.Counts.Atoms, store.Len()))
	}
	if rep.Counts.Included != included {
		res.Problems = append(res.Problems,
			fmt.Sprintf("counts.included %d does not match partition %d", rep.Counts.Included, included))
	}
	if rep.Counts.Excluded != excluded {
		res.Problems = append(res.Problems,
			fmt.Sprintf("counts.excluded %d does not match partition %d", rep.Counts.Excluded, excluded))
	}

	// 3. Quote attribution contract.
	for _, id := range sel.Quotes.Buckets[model.BucketPreservedQuotes] {
		if q := store.QuoteByID(id); q != nil && !q.SpeakerResolved {
			res.Problems = append(res.Problems,
				fmt.Sprintf("preserved quote %s has no resolved speaker", id))
		}
	}
	for _, id := range sel.Quotes.Buckets[model.BucketQuarantinedQuotes] {
		if q := store.QuoteByID(id); q != nil && q.QuarantineReason == "" {
			res.Problems = append(res.Problems,
				fmt.Sprintf("quarantined quote %s carries no reason", id))
		}
	}

	res.Confidence = confidenceStats(store.Events)
	res.OK = len(res.Problems) == 0
	return res
}

// VerifyFile loads one report JSON file and verifies it.
func VerifyFile(path string) (*VerifyResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var rep model.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	res := Verify(&rep)
	res.Path = path
	return res, nil
}

// VerifyFiles re-checks report files concurrently. A file that cannot
// be read or parsed fails its own result rather than the whole batch.
func VerifyFiles(ctx context.Context, paths []string, concurrency int) []*VerifyResult {
	if concurrency <= 0 {
		concurrency = 4
	}
	results := make([]*VerifyResult, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = &VerifyResult{Path: path, Problems: []string{err.Error()}}
				return nil
			}
			res, err := VerifyFile(path)
			if err != nil {
				res = &VerifyResult{Path: path, Problems: []string{err.Error()}}
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func checkPartition(res *VerifyResult, category string, storeIDs []string, cr *model.CategoryResult) {
	counts := make(map[string]int)
	for _, id := range cr.AccountedIDs() {
		counts[id]++
	}

	known := make(map[string]bool, len(storeIDs))
	var missing, repeated []string
	for _, id := range storeIDs {
		known[id] = true
		switch counts[id] {
		case 0:
			missing = append(missing, id)
		case 1:
		default:
			repeated = append(repeated, id)
		}
	}
	var unknown []string
	for id := range counts {
		if !known[id] {
			unknown = append(unknown, id)
		}
	}
	sort.Strings(unknown)

	if len(missing) > 0 {
		res.Problems = append(res.Problems,
			fmt.Sprintf("%s unaccounted: %s", category, strings.Join(missing, ", ")))
	}
	if len(repeated) > 0 {
		res.Problems = append(res.Problems,
			fmt.Sprintf("%s routed twice: %s", category, strings.Join(repeated, ", ")))
	}
	if len(unknown) > 0 {
		res.Problems = append(res.Problems,
			fmt.Sprintf("%s not in store: %s", category, strings.Join(unknown, ", ")))
	}
}

func confidenceStats(events []*model.Event) ConfidenceStats {
	if len(events) == 0 {
		return ConfidenceStats{}
	}
	data := make([]float64, 0, len(events))
	for _, ev := range events {
		data = append(data, ev.Camera.Confidence)
	}
	mean, _ := stats.Mean(data)
	median, _ := stats.Median(data)
	p90, _ := stats.Percentile(data, 90)
	return ConfidenceStats{Events: len(events), Mean: mean, Median: median, P90: p90}
}

func idsOfEvents(s *model.Store) []string {
	ids := make([]string, 0, len(s.Events))
	for _, ev := range s.Events {
		ids = append(ids, ev.ID)
	}
	return ids
}

func idsOfEntities(s *model.Store) []string {
	ids := make([]string, 0, len(s.Entities))
	for _, en := range s.Entities {
		ids = append(ids, en.ID)
	}
	return ids
}

func idsOfQuotes(s *model.Store) []string {
	ids := make([]string, 0, len(s.Quotes))
	for _, q := range s.Quotes {
		ids = append(ids, q.ID)
	}
	return ids
}

func idsOfTimeline(s *model.Store) []string {
	ids := make([]string, 0, len(s.Timeline))
	for _, t := range s.Timeline {
		ids = append(ids, t.ID)
	}
	return ids
}

func idsOfStatements(s *model.Store) []string {
	ids := make([]string, 0, len(s.Statements))
	for _, st := range s.Statements {
		ids = append(ids, st.ID)
	}
	return ids
}
