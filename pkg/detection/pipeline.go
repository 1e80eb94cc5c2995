package detection

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/menta2k/nutrivision/pkg/filter"
	"github.com/menta2k/nutrivision/pkg/geometry"
	"github.com/menta2k/nutrivision/pkg/nutrition"
	"github.com/menta2k/nutrivision/pkg/parser"
	"github.com/menta2k/nutrivision/pkg/types"
)

// Reasons a parsed detection is skipped
const (
	ReasonDegenerate = "degenerate"
	ReasonTooSmall   = "too_small"
	ReasonNonFood    = "non_food"
	ReasonOverlap    = "overlap"
)

// PassStats describes what one pass over a model response did
type PassStats struct {
	Pass     types.Pass
	Strategy string
	Parsed   int
	Accepted int
	Rejected map[string]int
}

// Outcome is the result of reconciling the primary and alternative responses
type Outcome struct {
	Detections  []types.Detection
	Summary     types.NutritionalSummary
	Primary     PassStats
	Alternative *PassStats // nil when the primary pass was sufficient
}

// Process runs the two-pass pipeline over model responses for an image of
// width x height pixels. It never fails: malformed detections are skipped.
func (d *Detector) Process(primary, alternative string, width, height int) Outcome {
	return d.process(primary, alternative, width, height, d.log)
}

func (d *Detector) process(primary, alternative string, width, height int, log logrus.FieldLogger) Outcome {
	rng := d.newRand()

	results, primaryStats := d.runPass(primary, types.PassPrimary, width, height, nil, rng, log)
	out := Outcome{Primary: primaryStats}

	if len(results) < d.config.MinIngredients {
		log.WithField("accepted", len(results)).Info("Too few ingredients from primary prompt, processing alternative response")
		d.recorder.AlternativeTriggered()

		existing := make([]types.PixelBox, len(results))
		for i, r := range results {
			existing[i] = r.Box
		}
		extra, altStats := d.runPass(alternative, types.PassAlternative, width, height, existing, rng, log)
		results = append(results, extra...)
		out.Alternative = &altStats
	}

	results = Deduplicate(results)
	SortByArea(results)

	out.Detections = results
	out.Summary = nutrition.Summarize(results)
	return out
}

func (d *Detector) runPass(text string, pass types.Pass, width, height int, existing []types.PixelBox, rng RandSource, log logrus.FieldLogger) ([]types.Detection, PassStats) {
	raws, strategy := parser.ParseWithStrategy(text)
	stats := PassStats{
		Pass:     pass,
		Strategy: strategy,
		Parsed:   len(raws),
		Rejected: map[string]int{},
	}
	log = log.WithField("pass", pass.String())
	log.WithFields(logrus.Fields{"strategy": strategy, "parsed": len(raws)}).Debug("Parsed model response")

	base := d.config.PrimaryConfidence
	if pass == types.PassAlternative {
		base = d.config.AlternativeConfidence
	}

	// Candidates are suppressed against earlier passes and against boxes
	// already accepted in this one
	accepted := append([]types.PixelBox(nil), existing...)
	titler := cases.Title(language.Spanish)

	var results []types.Detection
	for i, raw := range raws {
		label := filter.Normalize(raw.Label)
		skip := func(reason string) {
			stats.Rejected[reason]++
			log.WithFields(logrus.Fields{"index": i, "label": label, "reason": reason}).Debug("Skipping detection")
		}

		if !filter.IsPhysical(raw) {
			skip(ReasonDegenerate)
			continue
		}

		box := geometry.NormalizeRaw(raw, width, height, d.config.Offset)
		if !geometry.IsValid(box, d.config.MinBoxSize) {
			skip(ReasonTooSmall)
			continue
		}

		if !d.denylist.IsFood(label) {
			skip(ReasonNonFood)
			continue
		}

		if filter.Overlaps(box, accepted, d.config.OverlapThreshold) {
			skip(ReasonOverlap)
			continue
		}

		accepted = append(accepted, box)
		results = append(results, types.Detection{
			ID:            len(existing) + len(results) + 1,
			Label:         titler.String(label),
			Confidence:    nutrition.Round2(base + d.config.ConfidenceVariation*rng.Float64()),
			Box:           box,
			NormalizedBox: geometry.ModelBox(raw),
			Area:          geometry.Area(box),
			Nutrition:     d.table.Lookup(label),
			Pass:          pass,
		})
	}

	stats.Accepted = len(results)
	d.recorder.PassCompleted(stats)
	return results, stats
}

// Deduplicate keeps the first detection per case-insensitive label and
// renumbers the survivors 1..N in order
func Deduplicate(detections []types.Detection) []types.Detection {
	seen := make(map[string]struct{}, len(detections))
	out := make([]types.Detection, 0, len(detections))
	for _, det := range detections {
		key := strings.ToLower(det.Label)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		det.ID = len(out) + 1
		out = append(out, det)
	}
	return out
}

// SortByArea orders detections largest first, keeping the order of equal areas
func SortByArea(detections []types.Detection) {
	sort.SliceStable(detections, func(i, j int) bool {
		return detections[i].Area > detections[j].Area
	})
}

// Message describes the outcome for the caller
func Message(count int) string {
	if count == 0 {
		return "No se detectaron ingredientes específicos"
	}
	return fmt.Sprintf("Detectados %d ingredientes alimentarios con información nutricional", count)
}
