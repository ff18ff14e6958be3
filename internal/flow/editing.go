package flow

import (
	"regexp"

	"github.com/BTreeMap/ParcelPipe/internal/models"
)

// editTargets maps the field named in an edit request to the field. Order
// matters: "shipping address" edits the destination, not the priority.
var editTargets = []struct {
	pattern *regexp.Regexp
	field   models.Field
}{
	{regexp.MustCompile(`(?i)\bweight\b`), models.FieldWeight},
	{regexp.MustCompile(`(?i)\b(dimensions?|size)\b`), models.FieldDimensions},
	{regexp.MustCompile(`(?i)\b(destination|address)\b`), models.FieldDestination},
	{regexp.MustCompile(`(?i)\btype\b`), models.FieldPackageType},
	{regexp.MustCompile(`(?i)\bfragile\b`), models.FieldFragile},
	{regexp.MustCompile(`(?i)\b(priority|shipping)\b`), models.FieldPriority},
	{regexp.MustCompile(`(?i)\bsender\b`), models.FieldSender},
	{regexp.MustCompile(`(?i)\b(instructions?|special)\b`), models.FieldSpecialInstructions},
	{regexp.MustCompile(`(?i)\b(value|price)\b`), models.FieldValue},
	{regexp.MustCompile(`(?i)\binsurance\b`), models.FieldInsurance},
	{regexp.MustCompile(`(?i)\btracking\b`), models.FieldTracking},
}

var backPattern = regexp.MustCompile(`(?i)\b(back|never ?mind|nothing)\b`)

func editTarget(text string) (models.Field, bool) {
	for _, t := range editTargets {
		if t.pattern.MatchString(text) {
			return t.field, true
		}
	}
	return "", false
}
