// Package selection partitions a classified store into the presentation
// buckets of one mode. Selection is pure routing: it reads classification
// fields written upstream, never re-derives them, and accounts for every
// atom in exactly one bucket or exactly one exclusion. Narrow modes
// re-filter the same classification rather than re-running it.
package selection

import (
	"fmt"
	"log/slog"
	"sort"

	"plainview/internal/logging"
	"plainview/internal/model"
)

// Machine-readable exclusion reasons. The report surfaces these verbatim,
// so renaming one is a compatibility change.
const (
	ReasonModeExcluded       = "mode_excluded"
	ReasonBareRole           = "bare_role_noun"
	ReasonUnresolvedPronouns = "unresolved_pronouns"
	ReasonUnclassified       = "unclassified"
	ReasonRoutedAsEvent      = "routed_as_event"
	ReasonQuarantined        = "quarantined"
)

// Selector routes classified atoms into the buckets of a selection mode.
type Selector struct {
	cfg *model.Config
	log *slog.Logger
}

// New returns a Selector using cfg's thresholds. A nil cfg falls back to
// the built-in defaults.
func New(cfg *model.Config) *Selector {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	return &Selector{cfg: cfg, log: logging.New("selection")}
}

// Run partitions every atom in the store under the given mode and checks
// the partition is complete before returning it. A completeness failure
// is a bug in the routing logic, so it aborts the transform rather than
// dropping atoms quietly.
func (s *Selector) Run(store *model.Store, mode model.Mode) (*model.SelectionResult, error) {
	if store == nil {
		return nil, fmt.Errorf("select: nil store")
	}
	res := model.NewSelectionResult(mode)

	// 1. Route each atom category independently.
	s.routeEvents(res, store, mode)
	s.routeEntities(res, store, mode)
	s.routeQuotes(res, store, mode)
	s.routeTimeline(res, store, mode)
	s.routeStatements(res, store, mode)

	// 2. Assert every atom landed exactly once.
	if err := verify(res, store); err != nil {
		return nil, err
	}

	s.log.Debug("selection complete",
		"mode", mode,
		"included", res.IncludedCount(),
		"excluded", res.ExcludedCount())
	return res, nil
}

// includesEvents reports whether the mode presents events at all.
func includesEvents(mode model.Mode) bool {
	switch mode {
	case model.ModeStrict, model.ModeFull, model.ModeEventsOnly, model.ModeRecomposition:
		return true
	}
	return false
}

func includesEntities(mode model.Mode) bool {
	switch mode {
	case model.ModeStrict, model.ModeFull, model.ModeRecomposition:
		return true
	}
	return false
}

func includesQuotes(mode model.Mode) bool {
	switch mode {
	case model.ModeStrict, model.ModeFull, model.ModeRecomposition:
		return true
	}
	return false
}

func includesTimeline(mode model.Mode) bool {
	switch mode {
	case model.ModeStrict, model.ModeFull, model.ModeTimeline, model.ModeRecomposition:
		return true
	}
	return false
}

func includesStatements(mode model.Mode) bool {
	switch mode {
	case model.ModeStrict, model.ModeFull:
		return true
	}
	return false
}

func (s *Selector) routeEvents(res *model.SelectionResult, store *model.Store, mode model.Mode) {
	for _, ev := range store.Events {
		if !includesEvents(mode) {
			res.Events.Exclude(ev.ID, ReasonModeExcluded)
			continue
		}
		res.Events.Add(s.eventBucket(ev), ev.ID)
	}
}

// eventBucket applies the camera verdict. Follow-ups skip the confidence
// threshold once they pass the camera; a friendly verdict below threshold
// is presented as narrative, not as an observed event.
func (s *Selector) eventBucket(ev *model.Event) string {
	if !ev.Camera.Friendly {
		return model.BucketNarrativeExcerpts
	}
	if ev.IsFollowUp {
		return model.BucketFollowUpEvents
	}
	if ev.Camera.Confidence >= s.cfg.Rules.EventThreshold {
		return model.BucketObservedEvents
	}
	return model.BucketNarrativeExcerpts
}

func (s *Selector) routeEntities(res *model.SelectionResult, store *model.Store, mode model.Mode) {
	for _, en := range store.Entities {
		if !includesEntities(mode) {
			res.Entities.Exclude(en.ID, ReasonModeExcluded)
			continue
		}
		if !en.IsValidActor {
			// Bare role nouns stay visible in full mode only.
			if mode == model.ModeFull {
				res.Entities.Add(model.BucketMentionedContacts, en.ID)
			} else {
				res.Entities.Exclude(en.ID, ReasonBareRole)
			}
			continue
		}
		res.Entities.Add(entityBucket(en), en.ID)
	}
}

func entityBucket(en *model.Entity) string {
	switch en.Participation {
	case model.ParticipationIncident:
		return model.BucketIncidentParticipants
	case model.ParticipationPostIncident:
		return model.BucketPostIncidentPros
	default:
		return model.BucketMentionedContacts
	}
}

func (s *Selector) routeQuotes(res *model.SelectionResult, store *model.Store, mode model.Mode) {
	for _, q := range store.Quotes {
		if !includesQuotes(mode) {
			res.Quotes.Exclude(q.ID, ReasonModeExcluded)
			continue
		}
		if q.SpeakerResolved {
			res.Quotes.Add(model.BucketPreservedQuotes, q.ID)
		} else {
			res.Quotes.Add(model.BucketQuarantinedQuotes, q.ID)
		}
	}
}

func (s *Selector) routeTimeline(res *model.SelectionResult, store *model.Store, mode model.Mode) {
	// Included entries are emitted in canonical (day, sequence) order, so
	// collect first and sort before adding.
	var included []*model.TimelineEntry
	for _, te := range store.Timeline {
		if !includesTimeline(mode) {
			res.Timeline.Exclude(te.ID, ReasonModeExcluded)
			continue
		}
		if !te.PronounsResolved && mode != model.ModeFull {
			res.Timeline.Exclude(te.ID, ReasonUnresolvedPronouns)
			continue
		}
		included = append(included, te)
	}
	sort.SliceStable(included, func(i, j int) bool {
		if included[i].DayOffset != included[j].DayOffset {
			return included[i].DayOffset < included[j].DayOffset
		}
		return included[i].SequenceOrder < included[j].SequenceOrder
	})
	for _, te := range included {
		res.Timeline.Add(model.BucketTimelineEntries, te.ID)
	}
}

func (s *Selector) routeStatements(res *model.SelectionResult, store *model.Store, mode model.Mode) {
	for _, st := range store.Statements {
		if !includesStatements(mode) {
			res.Statements.Exclude(st.ID, ReasonModeExcluded)
			continue
		}
		if st.IsQuarantined {
			reason := st.QuarantineReason
			if reason == "" {
				reason = ReasonQuarantined
			}
			res.Statements.Exclude(st.ID, reason)
			continue
		}
		bucket, reason := statementBucket(st, mode == model.ModeFull)
		if reason != "" {
			res.Statements.Exclude(st.ID, reason)
			continue
		}
		res.Statements.Add(bucket, st.ID)
	}
}

// statementBucket maps an epistemic type and subtype to its bucket. In
// strict mode unknown statements and direct_event statements leave via
// the excluded list: unknowns because nothing vouches for them, direct
// events because they surface through their Event counterpart and would
// otherwise render twice. Full mode gives both their own buckets.
func statementBucket(st *model.AtomicStatement, full bool) (bucket, reason string) {
	switch st.Type {
	case model.TypeUnknown:
		if full {
			return model.BucketUnclassified, ""
		}
		return "", ReasonUnclassified
	case model.TypeDirectEvent:
		if full {
			return model.BucketDirectEvents, ""
		}
		return "", ReasonRoutedAsEvent
	case model.TypeSelfReport:
		switch st.Subtype {
		case model.SubtypeAcute:
			return model.BucketAcuteState, ""
		case model.SubtypeInjury:
			return model.BucketInjuryState, ""
		case model.SubtypePsychological:
			return model.BucketPsychologicalState, ""
		case model.SubtypeSocioeconomic:
			return model.BucketSocioeconomicImpact, ""
		default:
			return model.BucketGeneralSelfReport, ""
		}
	case model.TypeLegalClaim:
		switch st.Subtype {
		case model.SubtypeLegalAdmin:
			return model.BucketLegalAdmin, ""
		case model.SubtypeLegalCausation:
			return model.BucketLegalCausation, ""
		case model.SubtypeLegalAttorney:
			return model.BucketLegalAttorney, ""
		default:
			return model.BucketLegalDirect, ""
		}
	case model.TypeCharacterization:
		return model.BucketCharacterizations, ""
	case model.TypeInterpretation:
		return model.BucketInterpretations, ""
	case model.TypeInference:
		return model.BucketInferences, ""
	case model.TypeConspiracyClaim:
		return model.BucketContestedAllegation, ""
	case model.TypeMedicalFinding:
		return model.BucketMedicalFindings, ""
	case model.TypeAdminAction:
		return model.BucketAdminActions, ""
	case model.TypeSourceDerived:
		return model.BucketSourceDerived, ""
	default:
		// Unrecognized type strings route like unknown. No bucket is
		// invented for them.
		if full {
			return model.BucketUnclassified, ""
		}
		return "", ReasonUnclassified
	}
}
