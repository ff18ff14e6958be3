package nlu

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/BTreeMap/ParcelPipe/internal/models"
)

// Entity is one typed value found in an utterance.
type Entity struct {
	Kind       models.EntityKind `json:"kind"`
	Value      any               `json:"value"`
	Confidence float64           `json:"confidence"`
	Raw        string            `json:"raw"`
}

// extractor runs independently of every other extractor and of the intent.
type extractor struct {
	kind       models.EntityKind
	confidence float64
	extract    func(text string) (any, bool)
}

func wrap[T any](fn func(string) (T, bool)) func(string) (any, bool) {
	return func(text string) (any, bool) {
		v, ok := fn(text)
		if !ok {
			return nil, false
		}
		return v, true
	}
}

var extractorTable = []extractor{
	{models.EntityPackageType, 0.9, wrap(ExtractPackageType)},
	{models.EntityPriority, 0.9, wrap(ExtractPriority)},
	{models.EntityDimensions, 0.85, wrap(ExtractDimensions)},
	{models.EntityWeight, 0.85, wrap(ExtractWeight)},
	{models.EntityBoolean, 0.95, wrap(ExtractBoolean)},
	{models.EntityEmail, 0.9, wrap(ExtractEmail)},
	{models.EntityPhone, 0.8, wrap(ExtractPhone)},
}

const num = `(\d+(?:\.\d+)?)`

const dimUnit = `(centimeters?|centimetres?|cm|inches|inch|in|meters?|metres?|m)`

var (
	dimTriplePattern = regexp.MustCompile(`(?i)` + num + `\s*[x×*]\s*` + num + `\s*[x×*]\s*` + num + `\s*` + dimUnit + `\b`)
	lengthPattern    = regexp.MustCompile(`(?i)\blength\s*:?\s*` + num)
	widthPattern     = regexp.MustCompile(`(?i)\bwidth\s*:?\s*` + num)
	heightPattern    = regexp.MustCompile(`(?i)\bheight\s*:?\s*` + num)
	attachedUnit     = regexp.MustCompile(`(?i)\d\s*` + dimUnit + `\b`)
	standaloneUnit   = regexp.MustCompile(`(?i)\b` + dimUnit + `\b`)
	foreignDimUnit   = regexp.MustCompile(`(?i)\d\s*(mm|millimet(?:er|re)s?|dm|decimet(?:er|re)s?|km|kilomet(?:er|re)s?|ft|feet|foot|yds?|yards?)\b`)

	weightPattern = regexp.MustCompile(`(?i)` + num + `\s*(kilograms?|kgs?|pounds?|lbs?|grams?|g|ounces?|oz)\b`)

	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(?:\.[A-Za-z0-9\-]+)*\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`[\d\s\-+().]{10,}`)
)

// packageKeywords is checked in order; first substring hit wins.
var packageKeywords = []struct {
	keyword string
	kind    models.PackageType
}{
	{"box", models.PackageBox},
	{"envelope", models.PackageEnvelope},
	{"crate", models.PackageCrate},
	{"pallet", models.PackagePallet},
	{"tube", models.PackageTube},
}

// priorityKeywords is ordered so that the specific service levels are
// tested before the looser speed words.
var priorityKeywords = []struct {
	pattern  *regexp.Regexp
	priority models.Priority
}{
	{regexp.MustCompile(`(?i)\b(overnight|next[ -]day)\b`), models.PriorityOvernight},
	{regexp.MustCompile(`(?i)\bsame[ _-]day\b`), models.PrioritySameDay},
	{regexp.MustCompile(`(?i)\b(express|fast|quick|expedited|rush)\b`), models.PriorityExpress},
	{regexp.MustCompile(`(?i)\b(standard|regular|normal|economy)\b`), models.PriorityStandard},
}

var (
	trueTokens  = map[string]bool{"yes": true, "y": true, "true": true, "yeah": true, "yep": true, "sure": true, "ok": true}
	falseTokens = map[string]bool{"no": true, "n": true, "false": true, "nope": true, "nah": true}
)

// ExtractPackageType finds a package kind keyword anywhere in text.
func ExtractPackageType(text string) (models.PackageType, bool) {
	lower := strings.ToLower(text)
	for _, k := range packageKeywords {
		if strings.Contains(lower, k.keyword) {
			return k.kind, true
		}
	}
	return "", false
}

// ExtractPriority finds a delivery priority keyword.
func ExtractPriority(text string) (models.Priority, bool) {
	for _, k := range priorityKeywords {
		if k.pattern.MatchString(text) {
			return k.priority, true
		}
	}
	return "", false
}

// ExtractDimensions parses "L x W x H unit", falling back to labelled
// length/width/height values.
func ExtractDimensions(text string) (models.Dimensions, bool) {
	if m := dimTriplePattern.FindStringSubmatch(text); m != nil {
		l, _ := strconv.ParseFloat(m[1], 64)
		w, _ := strconv.ParseFloat(m[2], 64)
		h, _ := strconv.ParseFloat(m[3], 64)
		return models.Dimensions{Length: l, Width: w, Height: h, Unit: NormalizeDimensionUnit(m[4])}, true
	}

	if _, ok := UnsupportedDimensionUnit(text); ok {
		return models.Dimensions{}, false
	}
	lm := lengthPattern.FindStringSubmatch(text)
	wm := widthPattern.FindStringSubmatch(text)
	hm := heightPattern.FindStringSubmatch(text)
	if lm == nil || wm == nil || hm == nil {
		return models.Dimensions{}, false
	}
	unit := models.UnitCM
	if u := attachedUnit.FindStringSubmatch(text); u != nil {
		unit = NormalizeDimensionUnit(u[1])
	} else if u := standaloneUnit.FindStringSubmatch(text); u != nil {
		unit = NormalizeDimensionUnit(u[1])
	}
	l, _ := strconv.ParseFloat(lm[1], 64)
	w, _ := strconv.ParseFloat(wm[1], 64)
	h, _ := strconv.ParseFloat(hm[1], 64)
	return models.Dimensions{Length: l, Width: w, Height: h, Unit: unit}, true
}

// UnsupportedDimensionUnit reports a length unit written after a number that
// has no DimensionUnit, such as "mm" or "ft".
func UnsupportedDimensionUnit(text string) (string, bool) {
	m := foreignDimUnit.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ExtractWeight parses "NUM unit". The unit must end on a word boundary.
func ExtractWeight(text string) (models.Weight, bool) {
	m := weightPattern.FindStringSubmatch(text)
	if m == nil {
		return models.Weight{}, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return models.Weight{}, false
	}
	return models.Weight{Value: v, Unit: NormalizeWeightUnit(m[2])}, true
}

// ExtractBoolean recognises a whole-utterance yes/no token. Anything else is
// unknown rather than false.
func ExtractBoolean(text string) (bool, bool) {
	tok := strings.ToLower(strings.TrimRight(strings.TrimSpace(text), ".!"))
	switch {
	case trueTokens[tok]:
		return true, true
	case falseTokens[tok]:
		return false, true
	}
	return false, false
}

// ExtractEmail returns the first address-like token.
func ExtractEmail(text string) (string, bool) {
	e := emailPattern.FindString(text)
	return e, e != ""
}

// ExtractPhone returns the first run of digits and separators that is long
// enough to be a phone number.
func ExtractPhone(text string) (string, bool) {
	for _, cand := range phonePattern.FindAllString(text, -1) {
		cand = strings.Trim(cand, " \t\r\n.")
		if len(cand) < 10 {
			continue
		}
		if countDigits(cand) >= 7 {
			return cand, true
		}
	}
	return "", false
}

// NormalizeDimensionUnit maps a unit token to its canonical unit.
func NormalizeDimensionUnit(tok string) models.DimensionUnit {
	lower := strings.ToLower(tok)
	switch {
	case strings.HasPrefix(lower, "inch") || lower == "in":
		return models.UnitInch
	case lower == "m" || strings.HasPrefix(lower, "meter") || strings.HasPrefix(lower, "metre"):
		return models.UnitM
	}
	return models.UnitCM
}

// NormalizeWeightUnit maps a unit token to its canonical unit.
func NormalizeWeightUnit(tok string) models.WeightUnit {
	lower := strings.ToLower(strings.TrimSuffix(tok, "."))
	switch {
	case strings.HasPrefix(lower, "lb") || strings.HasPrefix(lower, "pound"):
		return models.UnitLBS
	case strings.HasPrefix(lower, "oz") || strings.HasPrefix(lower, "ounce"):
		return models.UnitOZ
	case lower == "g" || strings.HasPrefix(lower, "gram"):
		return models.UnitG
	}
	return models.UnitKG
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
