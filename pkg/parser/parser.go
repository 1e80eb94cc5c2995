// Package parser reconciles free-text vision model answers into raw
// detections of the form [ymin, xmin, ymax, xmax, label].
package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/menta2k/nutrivision/pkg/types"
)

const num = `(\d+(?:\.\d+)?)`

// Strategy extracts detections from text. An empty result means the
// strategy did not recognise the text.
type Strategy struct {
	Name  string
	Parse func(text string) []types.RawDetection
}

var (
	reLoose  = regexp.MustCompile(`\[` + num + `,?\s*` + num + `,?\s*` + num + `,?\s*` + num + `,?\s*([^\]]+)\]`)
	reSpaced = regexp.MustCompile(`\[\s*` + num + `\s*,\s*` + num + `\s*,\s*` + num + `\s*,\s*` + num + `\s*,\s*([^\]]+)\s*\]`)
	reBare   = regexp.MustCompile(`\[` + num + `\s+` + num + `\s+` + num + `\s+` + num + `\s+([^\]]+)\]`)

	reBracket  = regexp.MustCompile(`\[([^\]]+)\]`)
	reSplitter = regexp.MustCompile(`[,\s]+`)
)

// patternStrategies are tried in order; only the first one with a match is used
var patternStrategies = []Strategy{
	{Name: "loose", Parse: regexpStrategy(reLoose)},
	{Name: "spaced", Parse: regexpStrategy(reSpaced)},
	{Name: "bare", Parse: regexpStrategy(reBare)},
}

// fallbackStrategy runs only when no pattern strategy matched anything
var fallbackStrategy = Strategy{Name: "lines", Parse: parseLineByLine}

// StrategyNone is reported when nothing could be extracted
const StrategyNone = "none"

// Parse extracts raw detections from model text. It never fails: empty or
// unrecognisable text yields an empty slice.
func Parse(text string) []types.RawDetection {
	detections, _ := ParseWithStrategy(text)
	return detections
}

// ParseWithStrategy is Parse that also reports which strategy produced the result
func ParseWithStrategy(text string) ([]types.RawDetection, string) {
	if strings.TrimSpace(text) == "" {
		return nil, StrategyNone
	}

	for _, s := range patternStrategies {
		if found := s.Parse(text); len(found) > 0 {
			return found, s.Name
		}
	}

	if found := fallbackStrategy.Parse(text); len(found) > 0 {
		return found, fallbackStrategy.Name
	}
	return nil, StrategyNone
}

func regexpStrategy(re *regexp.Regexp) func(string) []types.RawDetection {
	return func(text string) []types.RawDetection {
		var out []types.RawDetection
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			d, ok := fromTokens(m[1:5], m[5])
			if !ok {
				continue
			}
			out = append(out, d)
		}
		return out
	}
}

// parseLineByLine handles output the bracket patterns reject, for example
// signed or exponent numbers, by splitting each bracketed line on commas
// and whitespace.
func parseLineByLine(text string) []types.RawDetection {
	var out []types.RawDetection
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.Contains(line, "[") || !strings.Contains(line, "]") {
			continue
		}

		m := reBracket.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		parts := splitTokens(m[1])
		if len(parts) < 5 {
			continue
		}

		d, ok := fromTokens(parts[:4], strings.Join(parts[4:], " "))
		if !ok {
			continue
		}
		out = append(out, d)
	}
	return out
}

func splitTokens(content string) []string {
	var parts []string
	for _, p := range reSplitter.Split(content, -1) {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func fromTokens(coords []string, label string) (types.RawDetection, bool) {
	var v [4]float64
	for i, c := range coords {
		f, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return types.RawDetection{}, false
		}
		v[i] = f
	}
	return types.RawDetection{
		YMin:  v[0],
		XMin:  v[1],
		YMax:  v[2],
		XMax:  v[3],
		Label: cleanLabel(label),
	}, true
}

// cleanLabel trims whitespace plus quoting and markdown emphasis the model
// sometimes wraps names in
func cleanLabel(label string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(label), "\"'`*"))
}
