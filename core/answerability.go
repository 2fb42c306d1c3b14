package core

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/huangsam/cgmlens/core/algo"
	"github.com/huangsam/cgmlens/schema"
)

// Check names.
const (
	CheckQualifyingEvents      = "qualifying_events"
	CheckCGMCoverage           = "cgm_coverage"
	CheckExposureVariation     = "exposure_variation"
	CheckOutcomeComputable     = "outcome_computable"
	CheckWindowCoverage        = "window_coverage"
	CheckAssumptionsConsistent = "assumptions_consistent"
	CheckDefinitionsDisjoint   = "definitions_disjoint"
)

// Structural caveats attached to every verdict.
var structuralLimitations = []string{
	"single-subject data: findings describe this person only",
	"observational data: associations are not causal effects",
	"no randomization of exposure timing or dose",
	"event timing and composition are self-reported annotations",
}

// groupEval is the selection result for one event group.
type groupEval struct {
	stats       schema.GroupStats
	events      []schema.Event
	considered  []string
	coverages   []*float64
	values      []float64
	belowFail   []string
	coverageBad []string
	lowCoverage int
}

// evaluation carries the state of one question evaluation.
type evaluation struct {
	q          schema.QuestionSpec
	eventSet   schema.EventSet
	metrics    map[string]schema.EventMetrics
	quality    schema.SignalQuality
	cfg        schema.EngineConfig
	required   int
	inSpan     []schema.Event
	confounded map[string]bool
	overlap    []string
	exposure   *groupEval
	comparison *groupEval

	checks       []schema.CheckResult
	limitations  []schema.Limitation
	issues       []string
	requirements []schema.DataRequirement
}

// Evaluate decides whether a question can be supported by the given events, metrics and
// signal quality. It is pure and only fails on an invalid question or configuration.
func Evaluate(q schema.QuestionSpec, events schema.EventSet, metrics []schema.EventMetrics, quality schema.SignalQuality, cfg schema.EngineConfig) (schema.Verdict, error) {
	if err := ValidateQuestion(q); err != nil {
		return schema.Verdict{}, err
	}
	if err := validateWeights(cfg.ConfidenceWeights); err != nil {
		return schema.Verdict{}, err
	}

	e := &evaluation{
		q:          q,
		eventSet:   events,
		metrics:    indexMetrics(metrics),
		quality:    quality,
		cfg:        cfg,
		required:   requiredEvents(q, cfg),
		confounded: map[string]bool{},
	}
	e.selectEvents()
	e.checkDataAvailability()
	e.checkMethodology()
	e.collectLimitations()
	e.collectRequirements()
	return e.verdict(), nil
}

// EvaluateAll evaluates each question independently. A question that fails validation
// yields an outcome carrying its error and never stops the others.
func EvaluateAll(questions []schema.QuestionSpec, events schema.EventSet, metrics []schema.EventMetrics, quality schema.SignalQuality, cfg schema.EngineConfig) []schema.QuestionOutcome {
	outcomes := make([]schema.QuestionOutcome, 0, len(questions))
	for _, q := range questions {
		v, err := Evaluate(q, events, metrics, quality, cfg)
		if err != nil {
			outcomes = append(outcomes, schema.QuestionOutcome{QuestionID: q.ID, Error: err.Error()})
			continue
		}
		outcomes = append(outcomes, schema.QuestionOutcome{QuestionID: q.ID, Verdict: &v})
	}
	return outcomes
}

// ValidateQuestion checks the structural contract of a question.
func ValidateQuestion(q schema.QuestionSpec) error {
	if strings.TrimSpace(q.ID) == "" {
		return invalidInput("question has no question_id")
	}
	if q.Kind != schema.KindDescriptive && q.Kind != schema.KindComparative {
		return invalidInput("question %s: unknown kind %q", q.ID, q.Kind)
	}
	if strings.TrimSpace(q.Exposure.EventType) == "" {
		return invalidInput("question %s: exposure has no event_type", q.ID)
	}
	if _, ok := schema.ValidMetricNames[q.Outcome.Metric]; !ok {
		return invalidInput("question %s: unknown outcome metric %q", q.ID, q.Outcome.Metric)
	}
	if w := q.Outcome.Window; w != nil && w.EndOffsetMinutes < w.StartOffsetMinutes {
		return invalidInput("question %s: outcome window end precedes start", q.ID)
	}
	switch q.Counterfactual.Kind {
	case schema.CounterfactualComparisonEvents:
		if q.Counterfactual.Comparison == nil || strings.TrimSpace(q.Counterfactual.Comparison.EventType) == "" {
			return invalidInput("question %s: comparison_events counterfactual needs a comparison definition", q.ID)
		}
	case schema.CounterfactualPreEventBaseline, schema.CounterfactualNone, "":
	default:
		return invalidInput("question %s: unknown counterfactual %q", q.ID, q.Counterfactual.Kind)
	}
	selectors := []*schema.Selector{q.Exposure.Selector}
	if q.Counterfactual.Comparison != nil {
		selectors = append(selectors, q.Counterfactual.Comparison.Selector)
	}
	for _, c := range q.InclusionCriteria {
		selectors = append(selectors, &c.Selector)
	}
	for _, sel := range selectors {
		if sel == nil {
			continue
		}
		if _, ok := schema.ValidOperators[sel.Operator]; !ok {
			return invalidInput("question %s: unknown operator %q", q.ID, sel.Operator)
		}
	}
	return nil
}

func validateWeights(w schema.ConfidenceWeights) error {
	for _, v := range []float64{w.DataCompleteness, w.MethodologyReliability, w.ConfoundControl, w.TimingAccuracy} {
		if v < 0 || math.IsNaN(v) {
			return invalidInput("confidence weights must be non-negative")
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > 1e-3 {
		return invalidInput("confidence weights sum to %.4f, want 1.0", sum)
	}
	return nil
}

func requiredEvents(q schema.QuestionSpec, cfg schema.EngineConfig) int {
	if q.Kind == schema.KindComparative {
		return max(cfg.MinQualifyingEvents, 1)
	}
	return max(cfg.MinDescriptiveEvents, 1)
}

func indexMetrics(metrics []schema.EventMetrics) map[string]schema.EventMetrics {
	index := make(map[string]schema.EventMetrics, len(metrics))
	for _, em := range metrics {
		index[em.EventID] = em
	}
	return index
}

func (e *evaluation) defaultDuration() time.Duration {
	return time.Duration(e.cfg.DefaultEventDurationMinutes * float64(time.Minute))
}

func (e *evaluation) subjectMismatch() bool {
	return e.q.SubjectID != "" && e.eventSet.SubjectID != "" && e.q.SubjectID != e.eventSet.SubjectID
}

// selectEvents filters by time span, matches groups and tallies usable events.
func (e *evaluation) selectEvents() {
	for _, ev := range e.eventSet.Events {
		if e.q.TimeSpan.Contains(ev.StartTime) {
			e.inSpan = append(e.inSpan, ev)
		}
	}
	for _, id := range findConfounded(e.inSpan, e.cfg.MinIsolationMinutes, e.defaultDuration()) {
		e.confounded[id] = true
	}

	e.exposure = e.evaluateGroup(schema.GroupExposure, e.match(e.q.Exposure))
	if e.q.IsComparative() {
		e.comparison = e.evaluateGroup(schema.GroupComparison, e.match(*e.q.Counterfactual.Comparison))
		compIDs := e.comparison.stats.EventIDs
		for _, id := range e.exposure.stats.EventIDs {
			if slices.Contains(compIDs, id) {
				e.overlap = append(e.overlap, id)
			}
		}
		sort.Strings(e.overlap)
	}
}

func (e *evaluation) match(def schema.EventDefinition) []schema.Event {
	var out []schema.Event
	for _, ev := range e.inSpan {
		if MatchesDefinition(ev, def) && MatchesConditions(ev, e.q.InclusionCriteria) {
			out = append(out, ev)
		}
	}
	return out
}

func (e *evaluation) groups() []*groupEval {
	if e.comparison != nil {
		return []*groupEval{e.exposure, e.comparison}
	}
	return []*groupEval{e.exposure}
}

// usable is the smallest usable count across groups.
func (e *evaluation) usable() int {
	n := e.exposure.stats.Usable
	if e.comparison != nil {
		n = min(n, e.comparison.stats.Usable)
	}
	return n
}

// evaluateGroup walks matched events. Confounded events are never usable; the rest are
// usable when the outcome metric exists for the requested window with adequate coverage.
func (e *evaluation) evaluateGroup(name string, events []schema.Event) *groupEval {
	g := &groupEval{
		stats:  schema.GroupStats{Group: name, EventIDs: []string{}, UsableEventIDs: []string{}},
		events: events,
	}
	for _, ev := range events {
		g.stats.EventIDs = append(g.stats.EventIDs, ev.ID)
		g.stats.Matched++
		if e.confounded[ev.ID] {
			g.stats.Confounded++
			continue
		}
		g.considered = append(g.considered, ev.ID)

		em, ok := e.metrics[ev.ID]
		metric, found := schema.Metric{}, false
		if ok {
			metric, found = em.Get(e.q.Outcome.Metric)
		}
		if !found {
			g.stats.MissingMetric++
			g.coverages = append(g.coverages, nil)
			g.coverageBad = append(g.coverageBad, ev.ID)
			continue
		}
		if !windowMatches(metric.Window, e.q.Outcome.Window) {
			g.stats.WindowMismatch++
			g.coverages = append(g.coverages, nil)
			continue
		}
		g.coverages = append(g.coverages, metric.CoverageRatio)
		if metric.CoverageRatio == nil || *metric.CoverageRatio < e.cfg.CoverageFailThreshold {
			g.stats.LowCoverage++
			g.belowFail = append(g.belowFail, ev.ID)
			g.coverageBad = append(g.coverageBad, ev.ID)
			continue
		}
		if metric.HasFlag(schema.FlagLowCoverage) {
			g.lowCoverage++
		}
		g.stats.Usable++
		g.stats.UsableEventIDs = append(g.stats.UsableEventIDs, ev.ID)
		g.values = append(g.values, metric.Value)
	}
	return g
}

func windowMatches(got schema.MetricWindow, want *schema.WindowSpec) bool {
	if want == nil {
		return true
	}
	return got.StartOffsetMinutes == want.StartOffsetMinutes && got.EndOffsetMinutes == want.EndOffsetMinutes
}

// findConfounded returns events whose isolation band overlaps another event.
func findConfounded(events []schema.Event, isolationMinutes float64, defaultDuration time.Duration) []string {
	isolation := time.Duration(isolationMinutes * float64(time.Minute))
	var out []string
	for i, ev := range events {
		lo := ev.StartTime.Add(-isolation)
		hi := ev.EffectiveEnd(defaultDuration).Add(isolation)
		for j, other := range events {
			if i == j {
				continue
			}
			if !other.StartTime.After(hi) && !other.EffectiveEnd(defaultDuration).Before(lo) {
				out = append(out, ev.ID)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

func (e *evaluation) addCheck(name string, category schema.CheckCategory, outcome schema.CheckOutcome, finding string) {
	e.checks = append(e.checks, schema.CheckResult{Name: name, Category: category, Outcome: outcome, Finding: finding})
}

func (e *evaluation) checkDataAvailability() {
	e.checkQualifyingEvents()
	e.checkCGMCoverage()
	e.checkExposureVariation()
}

func (e *evaluation) checkQualifyingEvents() {
	if e.subjectMismatch() {
		msg := fmt.Sprintf("event subject %s does not match question subject %s", e.eventSet.SubjectID, e.q.SubjectID)
		e.issues = append(e.issues, msg)
		e.addCheck(CheckQualifyingEvents, schema.CategoryDataAvailability, schema.CheckFailed, msg)
		return
	}
	var short []string
	for _, g := range e.groups() {
		if g.stats.Usable < e.required {
			msg := fmt.Sprintf("fewer than required qualifying %s events (%d < %d)", g.stats.Group, g.stats.Usable, e.required)
			short = append(short, msg)
			e.issues = append(e.issues, msg)
		}
	}
	if len(short) > 0 {
		e.addCheck(CheckQualifyingEvents, schema.CategoryDataAvailability, schema.CheckFailed, strings.Join(short, "; "))
		return
	}
	e.addCheck(CheckQualifyingEvents, schema.CategoryDataAvailability, schema.CheckPassed,
		fmt.Sprintf("%d usable events per group (need %d)", e.usable(), e.required))
}

func (e *evaluation) checkCGMCoverage() {
	var bad, total, covered int
	var short *groupEval
	for _, g := range e.groups() {
		bad += len(g.coverageBad)
		total += len(g.considered)
		// window mismatches have no coverage at the requested window
		covered += g.stats.Usable
		if short == nil && g.stats.Usable < e.required {
			short = g
		}
	}
	if bad > 0 {
		e.issues = append(e.issues, fmt.Sprintf("coverage below threshold for %d of %d events", bad, total))
	}

	failPct := 100 * e.cfg.CoverageFailThreshold
	switch {
	case !e.quality.Estimable():
		e.addCheck(CheckCGMCoverage, schema.CategoryDataAvailability, schema.CheckFailed,
			"series coverage cannot be estimated from fewer than 2 valid samples")
	case *e.quality.CoveragePercentage < failPct:
		e.addCheck(CheckCGMCoverage, schema.CategoryDataAvailability, schema.CheckFailed,
			fmt.Sprintf("series coverage %.1f%% below %.0f%%", *e.quality.CoveragePercentage, failPct))
	case short != nil:
		e.addCheck(CheckCGMCoverage, schema.CategoryDataAvailability, schema.CheckFailed,
			fmt.Sprintf("only %d of %d %s events have outcome coverage >= %.2f (need %d)",
				short.stats.Usable, len(short.considered), short.stats.Group, e.cfg.CoverageFailThreshold, e.required))
	default:
		e.addCheck(CheckCGMCoverage, schema.CategoryDataAvailability, schema.CheckPassed,
			fmt.Sprintf("series coverage %.1f%%; %d of %d events adequately covered", *e.quality.CoveragePercentage, covered, total))
	}
}

// checkExposureVariation fails when every usable exposure event has the same dose and
// start time of day.
func (e *evaluation) checkExposureVariation() {
	if e.q.Kind != schema.KindComparative {
		e.addCheck(CheckExposureVariation, schema.CategoryDataAvailability, schema.CheckPassed,
			"not required for descriptive questions")
		return
	}
	usable := map[string]bool{}
	for _, id := range e.exposure.stats.UsableEventIDs {
		usable[id] = true
	}
	signatures := map[string]struct{}{}
	for _, ev := range e.exposure.events {
		if usable[ev.ID] {
			signatures[exposureSignature(ev, e.q.Exposure.Selector)] = struct{}{}
		}
	}
	switch {
	case len(usable) < 2:
		e.addCheck(CheckExposureVariation, schema.CategoryDataAvailability, schema.CheckIndeterminate,
			"fewer than 2 usable exposure events")
	case len(signatures) < 2:
		e.addCheck(CheckExposureVariation, schema.CategoryDataAvailability, schema.CheckFailed,
			"all exposure events share the same dose and time of day")
		e.issues = append(e.issues, "no variation in exposure dose or timing")
	default:
		e.addCheck(CheckExposureVariation, schema.CategoryDataAvailability, schema.CheckPassed,
			fmt.Sprintf("%d distinct dose/time combinations", len(signatures)))
	}
}

func exposureSignature(ev schema.Event, sel *schema.Selector) string {
	var dose string
	if sel != nil && sel.Component != "" {
		v, _, _ := resolveComponent(ev, sel.Component)
		dose = fmt.Sprint(v)
	} else {
		names := make([]string, 0, len(ev.Components))
		for name := range ev.Components {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, name := range names {
			parts[i] = fmt.Sprintf("%s=%v", name, ev.Components[name].Value)
		}
		dose = strings.Join(parts, ",")
	}
	return fmt.Sprintf("%s@%02d:%02d", dose, ev.StartTime.Hour(), ev.StartTime.Minute())
}

func (e *evaluation) checkMethodology() {
	e.checkOutcomeComputable()
	e.checkWindowCoverage()
	e.checkAssumptions()
	e.checkDefinitionsDisjoint()
}

func (e *evaluation) checkOutcomeComputable() {
	var computable, considered int
	for _, g := range e.groups() {
		considered += len(g.considered)
		computable += len(g.considered) - g.stats.MissingMetric - g.stats.WindowMismatch
	}
	if considered == 0 {
		e.addCheck(CheckOutcomeComputable, schema.CategoryMethodology, schema.CheckIndeterminate,
			"no qualifying events to compute the outcome for")
		return
	}
	fraction := float64(computable) / float64(considered)
	finding := fmt.Sprintf("%s computable for %d of %d events (%.0f%%)", e.q.Outcome.Metric, computable, considered, 100*fraction)
	if fraction < e.cfg.MinComputableFraction {
		e.addCheck(CheckOutcomeComputable, schema.CategoryMethodology, schema.CheckFailed, finding)
		return
	}
	e.addCheck(CheckOutcomeComputable, schema.CategoryMethodology, schema.CheckPassed, finding)
}

func (e *evaluation) checkWindowCoverage() {
	var below, computed int
	for _, g := range e.groups() {
		below += len(g.belowFail)
		computed += len(g.considered) - g.stats.MissingMetric - g.stats.WindowMismatch
	}
	switch {
	case computed == 0:
		e.addCheck(CheckWindowCoverage, schema.CategoryMethodology, schema.CheckIndeterminate,
			"no outcome metrics to assess")
	case below > 0:
		e.addCheck(CheckWindowCoverage, schema.CategoryMethodology, schema.CheckFailed,
			fmt.Sprintf("%d of %d outcome metrics below coverage %.2f", below, computed, e.cfg.CoverageFailThreshold))
	default:
		e.addCheck(CheckWindowCoverage, schema.CategoryMethodology, schema.CheckPassed,
			fmt.Sprintf("all %d outcome metrics at or above coverage %.2f", computed, e.cfg.CoverageFailThreshold))
	}
}

// checkAssumptions verifies declared assumptions against the data. Overlap is decided by
// interval intersection of the declared response windows.
func (e *evaluation) checkAssumptions() {
	if len(e.q.Assumptions) == 0 {
		e.addCheck(CheckAssumptionsConsistent, schema.CategoryMethodology, schema.CheckPassed, "no assumptions declared")
		return
	}
	var violated, undecided, verified []string
	for _, a := range e.q.Assumptions {
		switch a.Name {
		case schema.AssumeNoOverlappingExposures:
			if pair, ok := e.overlappingResponseWindows(); ok {
				msg := fmt.Sprintf("%s violated: response windows of %s and %s overlap", a.Name, pair[0], pair[1])
				violated = append(violated, msg)
				e.issues = append(e.issues, msg)
			} else {
				verified = append(verified, a.Name)
			}
		case schema.AssumeIsolatedEvents:
			var hit []string
			for _, g := range e.groups() {
				for _, ev := range g.events {
					if e.confounded[ev.ID] {
						hit = append(hit, ev.ID)
					}
				}
			}
			if len(hit) > 0 {
				msg := fmt.Sprintf("%s violated: %d events within %.0f minutes of another event", a.Name, len(hit), e.cfg.MinIsolationMinutes)
				violated = append(violated, msg)
				e.issues = append(e.issues, msg)
			} else {
				verified = append(verified, a.Name)
			}
		case schema.AssumeRegularSampling:
			switch {
			case e.quality.IsRegular == nil:
				undecided = append(undecided, a.Name)
			case !*e.quality.IsRegular:
				violated = append(violated, fmt.Sprintf("%s violated: interval cv %.3f", a.Name, *e.quality.CVInterval))
			default:
				verified = append(verified, a.Name)
			}
		default:
			e.limitations = append(e.limitations, schema.Limitation{
				Text: fmt.Sprintf("assumption %q cannot be verified against data", a.Name),
			})
		}
	}
	switch {
	case len(violated) > 0:
		e.addCheck(CheckAssumptionsConsistent, schema.CategoryMethodology, schema.CheckFailed, strings.Join(violated, "; "))
	case len(undecided) > 0:
		e.addCheck(CheckAssumptionsConsistent, schema.CategoryMethodology, schema.CheckIndeterminate,
			"cannot verify: "+strings.Join(undecided, ", "))
	default:
		finding := "no verifiable assumptions declared"
		if len(verified) > 0 {
			finding = "consistent with data: " + strings.Join(verified, ", ")
		}
		e.addCheck(CheckAssumptionsConsistent, schema.CategoryMethodology, schema.CheckPassed, finding)
	}
}

// overlappingResponseWindows returns the first pair of selected events, exposure and
// comparison alike, whose response windows intersect. Touching endpoints do not overlap.
func (e *evaluation) overlappingResponseWindows() ([2]string, bool) {
	w := e.cfg.ResponseWindow
	if e.q.Outcome.Window != nil {
		w = *e.q.Outcome.Window
	}
	var events []schema.Event
	seen := make(map[string]bool)
	for _, g := range e.groups() {
		for _, ev := range g.events {
			if !seen[ev.ID] {
				seen[ev.ID] = true
				events = append(events, ev)
			}
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].StartTime.Before(events[j].StartTime) })

	// windows share one length, so sorted neighbors are the only candidates
	for i := 1; i < len(events); i++ {
		prevEnd := offset(events[i-1].StartTime, w.EndOffsetMinutes)
		if offset(events[i].StartTime, w.StartOffsetMinutes).Before(prevEnd) {
			return [2]string{events[i-1].ID, events[i].ID}, true
		}
	}
	return [2]string{}, false
}

func (e *evaluation) checkDefinitionsDisjoint() {
	if e.comparison == nil {
		e.addCheck(CheckDefinitionsDisjoint, schema.CategoryMethodology, schema.CheckPassed, "no comparison group")
		return
	}
	if len(e.overlap) > 0 {
		msg := fmt.Sprintf("exposure and comparison selectors both match %d events: %s", len(e.overlap), strings.Join(e.overlap, ", "))
		e.issues = append(e.issues, msg)
		e.addCheck(CheckDefinitionsDisjoint, schema.CategoryMethodology, schema.CheckFailed, msg)
		return
	}
	e.addCheck(CheckDefinitionsDisjoint, schema.CategoryMethodology, schema.CheckPassed, "exposure and comparison groups are disjoint")
}

func (e *evaluation) collectLimitations() {
	var out []schema.Limitation
	for _, text := range structuralLimitations {
		out = append(out, schema.Limitation{Text: text})
	}
	if names := e.uncontrolledNames(); len(names) > 0 {
		out = append(out, schema.Limitation{
			Text: fmt.Sprintf("%d declared confounders are not controlled: %s", len(names), strings.Join(names, ", ")),
		})
	}
	if e.quality.IsRegular != nil && !*e.quality.IsRegular {
		out = append(out, schema.Limitation{Text: fmt.Sprintf("irregular CGM sampling (cv=%.3f)", *e.quality.CVInterval)})
	}
	if n := len(e.quality.SuspiciousChanges); n > 0 {
		out = append(out, schema.Limitation{Text: fmt.Sprintf("%d suspicious spike/drop candidates in the series", n)})
	}
	var low int
	for _, g := range e.groups() {
		low += g.lowCoverage
	}
	if low > 0 {
		out = append(out, schema.Limitation{
			Text: fmt.Sprintf("%d usable outcome metrics have coverage below %.2f", low, e.cfg.CoverageWarnThreshold),
		})
	}
	if aq := e.annotationQualities(); len(aq) > 0 {
		if mean := algo.Mean(aq); mean < e.cfg.MinAnnotationQuality {
			out = append(out, schema.Limitation{
				Text:     fmt.Sprintf("mean annotation quality %.2f below %.2f", mean, e.cfg.MinAnnotationQuality),
				Blocking: true,
			})
		}
	}
	e.limitations = append(out, e.limitations...)
}

func (e *evaluation) uncontrolledNames() []string {
	var names []string
	for _, c := range e.q.Confounders {
		if !c.Controlled {
			names = append(names, c.Name)
		}
	}
	return names
}

// annotationQualities covers the considered events of every group.
func (e *evaluation) annotationQualities() []float64 {
	var out []float64
	for _, g := range e.groups() {
		for _, ev := range g.events {
			if !e.confounded[ev.ID] {
				out = append(out, ev.AnnotationQuality)
			}
		}
	}
	return out
}

func (e *evaluation) collectRequirements() {
	for _, g := range e.groups() {
		name := g.stats.Group
		if g.stats.Matched == 0 {
			e.requirements = append(e.requirements, schema.DataRequirement{
				Type: schema.RequireCollectEvents, Group: name, Needed: e.required,
				Detail: fmt.Sprintf("add events that match the %s definition", name),
			})
			continue
		}
		if missing := e.required - g.stats.Usable; missing > 0 {
			e.requirements = append(e.requirements, schema.DataRequirement{
				Type: schema.RequireCollectEvents, Group: name, Needed: missing,
				Detail: fmt.Sprintf("collect at least %d more usable %s events", missing, name),
			})
		}
		if g.stats.MissingMetric > 0 {
			e.requirements = append(e.requirements, schema.DataRequirement{
				Type: schema.RequireComputeMetrics, Group: name, Needed: g.stats.MissingMetric,
				Detail: fmt.Sprintf("compute %s for events missing it or improve CGM coverage", e.q.Outcome.Metric),
			})
		}
		if g.stats.LowCoverage > 0 {
			e.requirements = append(e.requirements, schema.DataRequirement{
				Type: schema.RequireImproveCoverage, Group: name, Needed: g.stats.LowCoverage,
				Detail: "increase CGM coverage in the outcome window for low-coverage events",
			})
		}
		if g.stats.WindowMismatch > 0 {
			e.requirements = append(e.requirements, schema.DataRequirement{
				Type: schema.RequireRecomputeMetrics, Group: name, Needed: g.stats.WindowMismatch,
				Detail: "recompute metrics using the question's outcome window",
			})
		}
		if g.stats.Confounded > 0 {
			e.requirements = append(e.requirements, schema.DataRequirement{
				Type: schema.RequireCollectIsolatedEvents, Group: name, Needed: g.stats.Confounded,
				Detail: fmt.Sprintf("add %s events isolated by at least %.0f minutes", name, e.cfg.MinIsolationMinutes),
			})
		}
	}
	if len(e.overlap) > 0 {
		e.requirements = append(e.requirements, schema.DataRequirement{
			Type:   schema.RequireRefineDefinitions,
			Needed: len(e.overlap),
			Detail: "refine exposure and comparison selectors so they do not match the same events",
		})
	}
}

func (e *evaluation) verdict() schema.Verdict {
	status, rule := DeriveStatus(RuleInput{Checks: e.checks, Limitations: e.limitations, UsableEvents: e.usable()})

	var coverages []*float64
	for _, g := range e.groups() {
		coverages = append(coverages, g.coverages...)
	}
	in := ConfidenceInput{
		Coverages:         coverages,
		UsableEvents:      e.usable(),
		RequiredEvents:    e.required,
		ExposureValues:    e.exposure.values,
		Comparative:       e.comparison != nil,
		Uncontrolled:      e.q.UncontrolledConfounders(),
		AnnotationQuality: e.annotationQualities(),
		TimingUncertainty: e.cfg.TimingUncertaintyMinutes,
	}
	if e.comparison != nil {
		in.ComparisonValues = e.comparison.values
	}
	confidence, breakdown := ScoreConfidence(in, e.cfg.ConfidenceWeights)

	v := schema.Verdict{
		QuestionID:          e.q.ID,
		Status:              status,
		Confidence:          confidence,
		ConfidenceBreakdown: breakdown,
		FailedChecks:        []string{},
		Checks:              e.checks,
		Limitations:         e.limitations,
		DataRequirements:    e.requirements,
		MatchedRule:         rule,
		Checklist: schema.Checklist{
			DataAvailability: []string{},
			Methodology:      []string{},
			Limitations:      []string{},
			Issues:           e.issues,
		},
	}
	if v.DataRequirements == nil {
		v.DataRequirements = []schema.DataRequirement{}
	}
	if v.Checklist.Issues == nil {
		v.Checklist.Issues = []string{}
	}
	for _, c := range e.checks {
		line := fmt.Sprintf("%s: %s (%s)", c.Name, c.Outcome, c.Finding)
		if c.Category == schema.CategoryDataAvailability {
			v.Checklist.DataAvailability = append(v.Checklist.DataAvailability, line)
		} else {
			v.Checklist.Methodology = append(v.Checklist.Methodology, line)
		}
		if c.Outcome == schema.CheckFailed {
			v.FailedChecks = append(v.FailedChecks, c.Name)
		}
	}
	for _, l := range e.limitations {
		text := l.Text
		if l.Blocking {
			text += " [blocking]"
		}
		v.Checklist.Limitations = append(v.Checklist.Limitations, text)
	}
	for _, g := range e.groups() {
		v.Groups = append(v.Groups, g.stats)
	}
	return v
}
