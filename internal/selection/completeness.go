package selection

import (
	"fmt"
	"sort"
	"strings"

	"plainview/internal/model"
)

// categoryOrder fixes the order violations are reported in.
var categoryOrder = []string{"events", "entities", "quotes", "timeline", "statements"}

// CompletenessError is the selection invariant failure: after routing,
// some atom IDs were neither included nor excluded, or were accounted
// for more than once. It indicates a routing bug, never bad input, and
// always aborts the transform with the full list of offending IDs.
type CompletenessError struct {
	Missing  map[string][]string // category -> IDs never routed
	Repeated map[string][]string // category -> IDs routed more than once
	Unknown  map[string][]string // category -> routed IDs absent from the store
}

func newCompletenessError() *CompletenessError {
	return &CompletenessError{
		Missing:  map[string][]string{},
		Repeated: map[string][]string{},
		Unknown:  map[string][]string{},
	}
}

func (e *CompletenessError) empty() bool {
	return len(e.Missing) == 0 && len(e.Repeated) == 0 && len(e.Unknown) == 0
}

func (e *CompletenessError) Error() string {
	var parts []string
	for _, cat := range categoryOrder {
		if ids := e.Missing[cat]; len(ids) > 0 {
			parts = append(parts, fmt.Sprintf("%s unaccounted: %s", cat, strings.Join(ids, ", ")))
		}
		if ids := e.Repeated[cat]; len(ids) > 0 {
			parts = append(parts, fmt.Sprintf("%s routed twice: %s", cat, strings.Join(ids, ", ")))
		}
		if ids := e.Unknown[cat]; len(ids) > 0 {
			parts = append(parts, fmt.Sprintf("%s not in store: %s", cat, strings.Join(ids, ", ")))
		}
	}
	return "selection completeness violated: " + strings.Join(parts, "; ")
}

// verify checks that each category's buckets and exclusions account for
// every store atom of that category exactly once.
func verify(res *model.SelectionResult, store *model.Store) error {
	cerr := newCompletenessError()
	checkCategory(cerr, "events", eventIDs(store), &res.Events)
	checkCategory(cerr, "entities", entityIDs(store), &res.Entities)
	checkCategory(cerr, "quotes", quoteIDs(store), &res.Quotes)
	checkCategory(cerr, "timeline", timelineIDs(store), &res.Timeline)
	checkCategory(cerr, "statements", statementIDs(store), &res.Statements)
	if cerr.empty() {
		return nil
	}
	return cerr
}

func checkCategory(cerr *CompletenessError, category string, storeIDs []string, cr *model.CategoryResult) {
	counts := make(map[string]int, len(storeIDs))
	for _, id := range cr.AccountedIDs() {
		counts[id]++
	}
	known := make(map[string]bool, len(storeIDs))
	for _, id := range storeIDs {
		known[id] = true
		switch counts[id] {
		case 0:
			cerr.Missing[category] = append(cerr.Missing[category], id)
		case 1:
		default:
			cerr.Repeated[category] = append(cerr.Repeated[category], id)
		}
	}
	var unknown []string
	for id := range counts {
		if !known[id] {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		cerr.Unknown[category] = unknown
	}
}

func statementIDs(store *model.Store) []string {
	ids := make([]string, 0, len(store.Statements))
	for _, st := range store.Statements {
		ids = append(ids, st.ID)
	}
	return ids
}

func eventIDs(store *model.Store) []string {
	ids := make([]string, 0, len(store.Events))
	for _, ev := range store.Events {
		ids = append(ids, ev.ID)
	}
	return ids
}

func entityIDs(store *model.Store) []string {
	ids := make([]string, 0, len(store.Entities))
	for _, en := range store.Entities {
		ids = append(ids, en.ID)
	}
	return ids
}

func quoteIDs(store *model.Store) []string {
	ids := make([]string, 0, len(store.Quotes))
	for _, q := range store.Quotes {
		ids = append(ids, q.ID)
	}
	return ids
}

func timelineIDs(store *model.Store) []string {
	ids := make([]string, 0, len(store.Timeline))
	for _, te := range store.Timeline {
		ids = append(ids, te.ID)
	}
	return ids
}
