// Package timestamp implements C2 (Timestamp Extractor) and C4 (Confidence
// Scorer): turning a probed tag map plus a filename into an ordered
// candidate set, then reducing that set to a single chosen UTC instant and
// a confidence tier.
//
// The weight table is a plain map rather than an interface hierarchy per
// source type — the corpus favors small closed tables over dynamic dispatch
// for this kind of "score a fixed set of known cases" logic (see the
// teacher's metadata.ExtractorRegistry, which ranks extractors by a
// similarly declared priority rather than a visitor pattern).
package timestamp

import (
	"path/filepath"
	"regexp"
	"sort"
	"time"
)

// Tier is the confidence classification C4 assigns to a chosen timestamp.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
	TierNone   Tier = "none"
)

// Candidate is one (utc_datetime, source_label) pair surviving extraction.
// Source is one of the weight-table keys in Weights, or "Filename pattern".
type Candidate struct {
	UTC    time.Time
	Source string
}

// Weights is the source reliability table from spec.md §4.4. Declared as a
// package-level var (not const, maps can't be) but never mutated at
// runtime — treat it as read-only.
var Weights = map[string]int{
	"EXIF:DateTimeOriginal": 10,
	"EXIF:CreateDate":       8,
	"QuickTime:CreateDate":  7,
	"EXIF:ModifyDate":       5,
	"Filename pattern":      3,
	"File:FileModifyDate":   2,
	"File:FileCreateDate":   1,
}

// sourceOrder fixes declaration order for sources sharing an identical
// timestamp, so extraction is deterministic across runs — tests depend on
// stable candidate-set ordering.
var sourceOrder = []string{
	"EXIF:DateTimeOriginal",
	"EXIF:CreateDate",
	"EXIF:ModifyDate",
	"QuickTime:CreateDate",
	"File:FileModifyDate",
	"File:FileCreateDate",
	"Filename pattern",
}

// exifLayout is the layout exiftool and goexif both emit for date/time tags.
const exifLayout = "2006:01:02 15:04:05"

// Extract builds the raw candidate set (§4.2) from a probed tag map, a
// filename, and the timezone used to interpret offset-less EXIF stamps.
// It performs no sanity filtering — that's Score's job — so the full,
// unfiltered set is available for persistence and the review UI per
// spec.md §4.4 step "complete candidate set (serialized...)".
func Extract(tags map[string]string, filename string, loc *time.Location) []Candidate {
	var out []Candidate

	for _, source := range sourceOrder {
		if source == "Filename pattern" {
			continue
		}
		raw, ok := tags[source]
		if !ok || raw == "" {
			continue
		}
		t, ok := parseExifTimestamp(raw, source, loc)
		if !ok {
			continue
		}
		out = append(out, Candidate{UTC: t, Source: source})
	}

	if t, ok := parseFilenameTimestamp(filepath.Base(filename), loc); ok {
		out = append(out, Candidate{UTC: t, Source: "Filename pattern"})
	}

	return out
}

// parseExifTimestamp interprets a single tag's raw value according to
// spec.md §4.2: QuickTime values are UTC by definition, everything else is
// local-to-loc and gets converted.
func parseExifTimestamp(raw, source string, loc *time.Location) (time.Time, bool) {
	t, err := time.ParseInLocation(exifLayout, raw, time.UTC)
	if err != nil {
		// Some tools emit RFC3339-ish values for QuickTime tags (notably
		// ffprobe's creation_time); accept that form too.
		if t2, err2 := time.Parse(time.RFC3339, raw); err2 == nil {
			return t2.UTC(), true
		}
		return time.Time{}, false
	}

	if source == "QuickTime:CreateDate" {
		return t.UTC(), true
	}

	local, err := time.ParseInLocation(exifLayout, raw, loc)
	if err != nil {
		return t.UTC(), true
	}
	return local.UTC(), true
}

// filenamePatterns covers the camera-naming conventions named in spec.md
// §4.2: YYYYMMDD_HHMMSS, IMG_YYYYMMDD_HHMMSS (and similar prefixes), bare
// YYYYMMDD, and a dash/colon separated "YYYY-MM-DD HH:MM:SS" form.
var filenamePatterns = []struct {
	re     *regexp.Regexp
	layout string
}{
	{regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})[ _](\d{2}):(\d{2}):(\d{2})`), "2006-01-02 15:04:05"},
	{regexp.MustCompile(`(?:^|[A-Za-z_])(\d{8})_(\d{6})`), "20060102_150405"},
	{regexp.MustCompile(`(?:^|[A-Za-z_])(\d{8})(?:[^\d]|$)`), "20060102"},
}

func parseFilenameTimestamp(base string, loc *time.Location) (time.Time, bool) {
	for _, p := range filenamePatterns {
		m := p.re.FindStringSubmatch(base)
		if m == nil {
			continue
		}
		// Reconstruct the matched substring in the shape the layout expects.
		candidate := reassembleMatch(p.layout, m)
		t, err := time.ParseInLocation(p.layout, candidate, loc)
		if err != nil {
			continue
		}
		return t.UTC(), true
	}
	return time.Time{}, false
}

// reassembleMatch turns the capture groups FindStringSubmatch returned back
// into a single string shaped like the target layout, since the regex
// allows surrounding characters (prefixes like "IMG_") that must be
// stripped before parsing.
func reassembleMatch(layout string, groups []string) string {
	switch layout {
	case "2006-01-02 15:04:05":
		return groups[1] + "-" + groups[2] + "-" + groups[3] + " " + groups[4] + ":" + groups[5] + ":" + groups[6]
	case "20060102_150405":
		return groups[1] + "_" + groups[2]
	case "20060102":
		return groups[1]
	}
	return groups[0]
}

// SanityFilter drops candidates whose year falls outside
// [minValidYear, 2100], per spec.md §4.2.
func SanityFilter(candidates []Candidate, minValidYear int) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		y := c.UTC.Year()
		if y < minValidYear || y > 2100 {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Result is C4's output: the chosen timestamp (zero value when confidence
// is TierNone), its source, the tier, and the full unfiltered candidate set
// for persistence.
type Result struct {
	Chosen     time.Time
	Source     string
	Confidence Tier
	Candidates []Candidate
}

// Score runs the full C4 algorithm over a raw (unfiltered) candidate set.
func Score(raw []Candidate, minValidYear int) Result {
	filtered := SanityFilter(raw, minValidYear)
	if len(filtered) == 0 {
		return Result{Confidence: TierNone, Candidates: raw}
	}

	sorted := make([]Candidate, len(filtered))
	copy(sorted, filtered)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].UTC.Before(sorted[j].UTC) })

	chosen := sorted[0]
	weight := Weights[chosen.Source]

	agreement := 0
	for _, c := range filtered {
		if absDuration(c.UTC.Sub(chosen.UTC)) <= time.Second {
			agreement++
		}
	}

	var tier Tier
	switch {
	case weight >= 8 && agreement >= 2:
		tier = TierHigh
	case weight >= 5 || agreement >= 2:
		tier = TierMedium
	default:
		tier = TierLow
	}

	return Result{
		Chosen:     chosen.UTC,
		Source:     chosen.Source,
		Confidence: tier,
		Candidates: raw,
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
