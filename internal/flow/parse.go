package flow

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/BTreeMap/ParcelPipe/internal/models"
	"github.com/BTreeMap/ParcelPipe/internal/nlu"
)

// State-specific fallbacks, consulted only when the generic extractor found
// nothing for the field being asked.
var (
	otherTypePattern = regexp.MustCompile(`(?i)\bother\b`)
	looseDimsPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:x|by|×|\*|,)\s*(\d+(?:\.\d+)?)\s*(?:x|by|×|\*|,)\s*(\d+(?:\.\d+)?)\s*(centimeters?|centimetres?|cm|inches|inch|in|meters?|metres?|m)?\b`)
	looseWeightPat   = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(kilos?|kilogrammes?|grammes?|lb\.|#)`)
	fragileTrue      = regexp.MustCompile(`(?i)\b(fragile|breakable|delicate|handle with care|it is|yes,? it is)\b`)
	fragileFalse     = regexp.MustCompile(`(?i)\b(not fragile|sturdy|robust|not really|no,? it'?s not|it isn'?t)\b`)

	valuePattern = regexp.MustCompile(`(?i)(-)?\s*(us\$|\$|€|£|usd|eur|gbp|cad|aud)?\s*(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?)\s*(usd|eur|gbp|cad|aud|dollars?|euros?|bucks)?\b`)

	trackEmail     = regexp.MustCompile(`(?i)\be-?mail\b`)
	trackSMS       = regexp.MustCompile(`(?i)\b(sms|text|texts)\b`)
	trackSignature = regexp.MustCompile(`(?i)\bsignature\b`)
	trackAll       = regexp.MustCompile(`(?i)\b(all|everything|all of them)\b`)

	templateName = regexp.MustCompile(`(?i)template\s+(?:named\s+|called\s+)?["']?([\w-]+)`)
	recordNumber = regexp.MustCompile(`\b(\d+)\b`)
)

func parsePackageType(text string, res nlu.Result) (models.PackageType, bool) {
	if pt, ok := res.PackageType(); ok {
		return pt, true
	}
	if pt, ok := models.ParsePackageType(text); ok {
		return pt, true
	}
	if otherTypePattern.MatchString(text) {
		return models.PackageOther, true
	}
	return "", false
}

// parseDimensions returns a warning when the unit had to be assumed. A unit
// it cannot store is a miss, never a silent fallback to centimeters.
func parseDimensions(text string, res nlu.Result) (models.Dimensions, string, bool) {
	if d, ok := res.Dimensions(); ok {
		return d, "", true
	}
	if unit, ok := nlu.UnsupportedDimensionUnit(text); ok {
		slog.Debug("parseDimensions: unsupported unit", "unit", unit)
		return models.Dimensions{}, "", false
	}
	m := looseDimsPattern.FindStringSubmatch(text)
	if m == nil {
		return models.Dimensions{}, "", false
	}
	l, _ := strconv.ParseFloat(m[1], 64)
	w, _ := strconv.ParseFloat(m[2], 64)
	h, _ := strconv.ParseFloat(m[3], 64)
	d := models.Dimensions{Length: l, Width: w, Height: h, Unit: models.UnitCM}
	if m[4] == "" {
		return d, "No unit given, assuming centimeters.", true
	}
	d.Unit = nlu.NormalizeDimensionUnit(m[4])
	return d, "", true
}

func parseWeight(text string, res nlu.Result) (models.Weight, bool) {
	if w, ok := res.Weight(); ok {
		return w, true
	}
	m := looseWeightPat.FindStringSubmatch(text)
	if m == nil {
		return models.Weight{}, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return models.Weight{}, false
	}
	unit := models.UnitKG
	switch lower := strings.ToLower(m[2]); {
	case strings.HasPrefix(lower, "gramme"):
		unit = models.UnitG
	case lower == "lb." || lower == "#":
		unit = models.UnitLBS
	}
	return models.Weight{Value: v, Unit: unit}, true
}

// parseYesNo reads a yes/no answer from the boolean entity, then the
// confirm/deny intent.
func parseYesNo(res nlu.Result) (bool, bool) {
	if b, ok := res.Bool(); ok {
		return b, true
	}
	switch res.Intent {
	case models.IntentConfirm:
		return true, true
	case models.IntentDeny:
		return false, true
	}
	return false, false
}

func parseFragile(text string, res nlu.Result) (bool, bool) {
	if b, ok := parseYesNo(res); ok {
		return b, true
	}
	if fragileFalse.MatchString(text) {
		return false, true
	}
	if fragileTrue.MatchString(text) {
		return true, true
	}
	return false, false
}

func parsePriority(text string, res nlu.Result) (models.Priority, bool) {
	if p, ok := res.Priority(); ok {
		return p, true
	}
	return models.ParsePriority(text)
}

func nonEmptyLines(text string) []string {
	var out []string
	for _, l := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func splitTrim(s, sep string) []string {
	var out []string
	for _, p := range strings.Split(s, sep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

// splitTrailingPostal splits "IL 62701" into ("IL", "62701"). The trailing
// token must contain a digit.
func splitTrailingPostal(s string) (string, string, bool) {
	toks := strings.Fields(s)
	if len(toks) < 2 || !hasDigit(toks[len(toks)-1]) {
		return "", "", false
	}
	return strings.Join(toks[:len(toks)-1], " "), toks[len(toks)-1], true
}

// splitTrailingWord splits "Springfield IL" into ("Springfield", "IL").
func splitTrailingWord(s string) (string, string, bool) {
	toks := strings.Fields(s)
	if len(toks) < 2 {
		return "", "", false
	}
	return strings.Join(toks[:len(toks)-1], " "), toks[len(toks)-1], true
}

// parseAddress accepts three shapes:
//
//	multi-line:  street / city, state [postal] / postal country (or more lines)
//	5+ commas:   street, city, state, postal, country
//	fewer commas with combined "state postal" or "city state postal" parts
//
// The last comma segment is always the country. Unrecognized shapes are
// rejected rather than guessed.
func parseAddress(text string) (models.Address, bool) {
	lines := nonEmptyLines(text)
	switch {
	case len(lines) >= 3:
		return parseMultiLineAddress(lines)
	case len(lines) == 1:
		return parseSingleLineAddress(lines[0])
	}
	return models.Address{}, false
}

func parseMultiLineAddress(lines []string) (models.Address, bool) {
	a := models.Address{Street: lines[0]}
	cityLine := splitTrim(lines[1], ",")
	if len(cityLine) == 0 {
		return models.Address{}, false
	}
	a.City = cityLine[0]
	if len(cityLine) > 1 {
		rest := strings.Join(cityLine[1:], " ")
		if st, pc, ok := splitTrailingPostal(rest); ok {
			a.State, a.PostalCode = st, pc
		} else {
			a.State = rest
		}
	} else if city, st, ok := splitTrailingWord(a.City); ok {
		a.City, a.State = city, st
	}

	last := lines[len(lines)-1]
	if len(lines) == 3 {
		toks := strings.Fields(last)
		switch {
		case a.PostalCode == "" && len(toks) >= 2 && hasDigit(toks[0]):
			a.PostalCode = toks[0]
			a.Country = strings.Join(toks[1:], " ")
		case a.PostalCode == "" && len(toks) == 1 && hasDigit(toks[0]):
			a.PostalCode = toks[0]
		default:
			a.Country = last
		}
		return a, true
	}

	middle := lines[2 : len(lines)-1]
	if a.PostalCode == "" {
		a.PostalCode = middle[0]
		middle = middle[1:]
	}
	if len(middle) > 0 {
		a.AdditionalInfo = strings.Join(middle, ", ")
	}
	a.Country = last
	return a, true
}

func parseSingleLineAddress(line string) (models.Address, bool) {
	parts := splitTrim(line, ",")
	n := len(parts)
	if n < 3 {
		return models.Address{}, false
	}
	a := models.Address{Street: parts[0], Country: parts[n-1]}
	switch {
	case n >= 5:
		a.City, a.State, a.PostalCode = parts[1], parts[2], parts[3]
		if n > 5 {
			a.AdditionalInfo = strings.Join(parts[4:n-1], ", ")
		}
	case n == 4:
		if st, pc, ok := splitTrailingPostal(parts[2]); ok {
			a.City, a.State, a.PostalCode = parts[1], st, pc
		} else if hasDigit(parts[2]) {
			city, st, ok := splitTrailingWord(parts[1])
			if !ok {
				return models.Address{}, false
			}
			a.City, a.State, a.PostalCode = city, st, parts[2]
		} else {
			return models.Address{}, false
		}
	default:
		cityState, pc, ok := splitTrailingPostal(parts[1])
		if !ok {
			return models.Address{}, false
		}
		city, st, ok := splitTrailingWord(cityState)
		if !ok {
			return models.Address{}, false
		}
		a.City, a.State, a.PostalCode = city, st, pc
	}
	return a, true
}

// parseSender takes the name from the first comma segment that is not the
// email or phone, and an optional address from the following lines.
func parseSender(text string, res nlu.Result) (models.Sender, bool) {
	lines := nonEmptyLines(text)
	if len(lines) == 0 {
		return models.Sender{}, false
	}
	var s models.Sender
	s.Email, _ = res.Email()
	s.Phone, _ = res.Phone()

	for _, seg := range splitTrim(lines[0], ",") {
		if s.Email != "" {
			seg = strings.TrimSpace(strings.ReplaceAll(seg, s.Email, ""))
		}
		if s.Phone != "" {
			seg = strings.TrimSpace(strings.ReplaceAll(seg, s.Phone, ""))
		}
		if strings.IndexFunc(seg, unicode.IsLetter) >= 0 {
			s.Name = seg
			break
		}
	}
	if s.Name == "" {
		return models.Sender{}, false
	}
	if len(lines) > 1 {
		if addr, ok := parseAddress(strings.Join(lines[1:], "\n")); ok {
			s.Address = &addr
		}
	}
	return s, true
}

var currencyCodes = map[string]string{
	"$": "USD", "us$": "USD", "usd": "USD", "dollar": "USD", "dollars": "USD", "bucks": "USD",
	"€": "EUR", "eur": "EUR", "euro": "EUR", "euros": "EUR",
	"£": "GBP", "gbp": "GBP",
	"cad": "CAD", "aud": "AUD",
}

// parseValue reads "$1,250.50", "80 EUR" or a bare number. A missing
// currency falls back to defaultCurrency.
func parseValue(text, defaultCurrency string) (float64, string, bool) {
	m := valuePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, "", false
	}
	amount, err := strconv.ParseFloat(strings.ReplaceAll(m[3], ",", ""), 64)
	if err != nil {
		return 0, "", false
	}
	if m[1] != "" {
		amount = -amount
	}
	currency := defaultCurrency
	for _, tok := range []string{m[2], m[4]} {
		if code, ok := currencyCodes[strings.ToLower(tok)]; ok {
			currency = code
			break
		}
	}
	return amount, currency, true
}

// parseTracking reads notification keywords. A plain "no" turns everything
// off.
func parseTracking(text string, res nlu.Result) (models.TrackingPrefs, bool) {
	if b, ok := parseYesNo(res); ok && !b {
		return models.TrackingPrefs{}, true
	}
	if trackAll.MatchString(text) {
		return models.TrackingPrefs{EmailNotifications: true, SMSNotifications: true, SignatureRequired: true}, true
	}
	prefs := models.TrackingPrefs{
		EmailNotifications: trackEmail.MatchString(text),
		SMSNotifications:   trackSMS.MatchString(text),
		SignatureRequired:  trackSignature.MatchString(text),
	}
	if !prefs.EmailNotifications && !prefs.SMSNotifications && !prefs.SignatureRequired {
		return prefs, false
	}
	return prefs, true
}

func parseTemplateName(text string) string {
	if m := templateName.FindStringSubmatch(text); m != nil {
		return strings.ToLower(m[1])
	}
	return "default"
}

// parseRecordNumber returns the first integer in text as a 0-based index.
func parseRecordNumber(text string) (int, bool) {
	m := recordNumber.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 0, false
	}
	return n - 1, true
}
