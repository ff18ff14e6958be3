// Package validate checks candidate field values before the dialogue commits
// them to a shipment record.
//
// Every method returns a fresh models.ValidationResult. Hard errors set
// IsValid to false and block the transition; warnings never block.
package validate

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/BTreeMap/ParcelPipe/internal/models"
)

// Default limits.
const (
	DefaultMaxDimension       = 10000
	DefaultMaxWeight          = 100000
	DefaultMaxValue           = 1000000
	DefaultMaxInstructionsLen = 500
)

// Opts holds validator limits.
type Opts struct {
	MaxDimension       float64 // per-side upper bound in the dimension's own unit
	MaxWeight          float64 // upper bound in the weight's own unit
	MaxValue           float64 // declared value upper bound
	MaxInstructionsLen int     // special instructions length bound
}

// Option configures a Validator.
type Option func(*Opts)

// WithMaxDimension overrides the per-side dimension bound.
func WithMaxDimension(v float64) Option {
	return func(o *Opts) {
		o.MaxDimension = v
	}
}

// WithMaxWeight overrides the weight bound.
func WithMaxWeight(v float64) Option {
	return func(o *Opts) {
		o.MaxWeight = v
	}
}

// WithMaxValue overrides the declared value bound.
func WithMaxValue(v float64) Option {
	return func(o *Opts) {
		o.MaxValue = v
	}
}

// WithMaxInstructionsLen overrides the special instructions length bound.
func WithMaxInstructionsLen(n int) Option {
	return func(o *Opts) {
		o.MaxInstructionsLen = n
	}
}

// Validator is stateless and safe for concurrent use.
type Validator struct {
	opts Opts
}

// New creates a Validator. Non-positive option values fall back to defaults.
func New(opts ...Option) *Validator {
	cfg := Opts{
		MaxDimension:       DefaultMaxDimension,
		MaxWeight:          DefaultMaxWeight,
		MaxValue:           DefaultMaxValue,
		MaxInstructionsLen: DefaultMaxInstructionsLen,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = DefaultMaxDimension
	}
	if cfg.MaxWeight <= 0 {
		cfg.MaxWeight = DefaultMaxWeight
	}
	if cfg.MaxValue <= 0 {
		cfg.MaxValue = DefaultMaxValue
	}
	if cfg.MaxInstructionsLen <= 0 {
		cfg.MaxInstructionsLen = DefaultMaxInstructionsLen
	}
	slog.Debug("validate.New", "maxDimension", cfg.MaxDimension, "maxWeight", cfg.MaxWeight, "maxValue", cfg.MaxValue)
	return &Validator{opts: cfg}
}

var (
	emailPattern    = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(\.[A-Za-z0-9\-]+)*\.[A-Za-z]{2,}$`)
	phonePattern    = regexp.MustCompile(`^[\d\s\-+().]+$`)
	usPostalPattern = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
)

// Dimensions validates a length x width x height triple.
func (v *Validator) Dimensions(d models.Dimensions) models.ValidationResult {
	res := models.NewValidationResult()
	sides := []struct {
		name string
		val  float64
	}{{"length", d.Length}, {"width", d.Width}, {"height", d.Height}}
	for _, s := range sides {
		switch {
		case s.val <= 0:
			res.Fail(fmt.Sprintf("%s must be a positive number", s.name))
		case s.val > v.opts.MaxDimension:
			res.Fail(fmt.Sprintf("%s must be less than or equal to %g", s.name, v.opts.MaxDimension))
		}
	}
	if !d.Unit.IsValid() {
		res.Fail(fmt.Sprintf("unit must be one of cm, inch, m (got %q)", d.Unit))
	}
	if !res.IsValid {
		res.Suggest("Please provide length, width, and height as positive numbers with a unit (cm, inch, or m)")
		return res
	}

	if d.Unit == models.UnitCM {
		if d.Length > 500 || d.Width > 500 || d.Height > 500 {
			res.Warn("Dimensions seem unusually large for cm. Did you mean meters?")
		}
		if d.Length < 1 || d.Width < 1 || d.Height < 1 {
			res.Warn("Dimensions seem very small. Are you sure about the values?")
		}
		if d.Length*d.Width*d.Height > 1_000_000 {
			res.Warn("This is a very large package. Consider using pallet or crate packaging.")
		}
	}
	return res
}

// Weight validates a weight value and unit.
func (v *Validator) Weight(w models.Weight) models.ValidationResult {
	res := models.NewValidationResult()
	switch {
	case w.Value <= 0:
		res.Fail("weight must be a positive number")
	case w.Value > v.opts.MaxWeight:
		res.Fail(fmt.Sprintf("weight must be less than or equal to %g", v.opts.MaxWeight))
	}
	if !w.Unit.IsValid() {
		res.Fail(fmt.Sprintf("unit must be one of kg, lbs, g, oz (got %q)", w.Unit))
	}
	if !res.IsValid {
		res.Suggest("Please provide weight as a positive number with a unit (kg, lbs, g, or oz)")
		return res
	}

	kg := w.Kilograms()
	if kg > 1000 {
		res.Warn("This is a very heavy package (>1000kg). Ensure proper handling.")
	}
	if kg < 0.01 {
		res.Warn("Weight seems very light. Please verify.")
	}
	return res
}

func checkLen(res *models.ValidationResult, name, val string, min, max int) {
	n := len(strings.TrimSpace(val))
	switch {
	case n == 0:
		res.Fail(fmt.Sprintf("%s is required", name))
	case n < min:
		res.Fail(fmt.Sprintf("%s must be at least %d characters long", name, min))
	case n > max:
		res.Fail(fmt.Sprintf("%s must be at most %d characters long", name, max))
	}
}

// Address validates a postal address.
func (v *Validator) Address(a models.Address) models.ValidationResult {
	res := models.NewValidationResult()
	checkLen(&res, "street", a.Street, 3, 200)
	checkLen(&res, "city", a.City, 2, 100)
	checkLen(&res, "state", a.State, 2, 100)
	checkLen(&res, "postal code", a.PostalCode, 3, 20)
	checkLen(&res, "country", a.Country, 2, 100)
	if len(a.AdditionalInfo) > 200 {
		res.Fail("additional info must be at most 200 characters long")
	}
	if !res.IsValid {
		res.Suggest("Please provide complete address: street, city, state, postal code, and country")
		return res
	}

	switch strings.ToLower(strings.TrimSpace(a.Country)) {
	case "usa", "us", "united states", "united states of america":
		if !usPostalPattern.MatchString(strings.TrimSpace(a.PostalCode)) {
			res.Warn("US postal code format should be XXXXX or XXXXX-XXXX")
		}
	}
	return res
}

// Sender validates sender details. Contact fields are optional.
func (v *Validator) Sender(s models.Sender) models.ValidationResult {
	res := models.NewValidationResult()
	checkLen(&res, "sender name", s.Name, 2, 100)
	if s.Email != "" && !emailPattern.MatchString(s.Email) {
		res.Fail("email must be a valid email address")
	}
	if s.Phone != "" {
		if !phonePattern.MatchString(s.Phone) || len(s.Phone) < 10 || len(s.Phone) > 20 {
			res.Fail("phone must be 10 to 20 digits or separators")
		}
	}
	if s.Address != nil {
		addr := v.Address(*s.Address)
		if !addr.IsValid {
			res.IsValid = false
			for _, e := range addr.Errors {
				res.Errors = append(res.Errors, "sender "+e)
			}
		}
	}
	if !res.IsValid {
		return res
	}
	if s.Email == "" && s.Phone == "" {
		res.Warn("No contact information provided. Consider adding email or phone.")
	}
	return res
}

// PackageType validates a package kind, listing valid kinds on failure.
func (v *Validator) PackageType(raw string) models.ValidationResult {
	res := models.NewValidationResult()
	if _, ok := models.ParsePackageType(raw); !ok {
		res.Fail(fmt.Sprintf("Invalid package type: %s", raw))
		res.Suggest("Valid types: " + joinValues(models.PackageTypes))
	}
	return res
}

// Priority validates a priority level, listing valid levels on failure.
func (v *Validator) Priority(raw string) models.ValidationResult {
	res := models.NewValidationResult()
	if _, ok := models.ParsePriority(raw); !ok {
		res.Fail(fmt.Sprintf("Invalid priority: %s", raw))
		res.Suggest("Valid priorities: " + joinValues(models.Priorities))
	}
	return res
}

// Value validates a declared value and its ISO currency code.
func (v *Validator) Value(amount float64, currency string) models.ValidationResult {
	res := models.NewValidationResult()
	switch {
	case amount < 0:
		res.Fail("value must be zero or more")
	case amount > v.opts.MaxValue:
		res.Fail(fmt.Sprintf("value must be less than or equal to %g", v.opts.MaxValue))
	}
	if currency != "" && !currencyPattern.MatchString(currency) {
		res.Fail(fmt.Sprintf("currency must be a three letter code (got %q)", currency))
	}
	if !res.IsValid {
		res.Suggest(`Please enter a number such as "100" or "$250.50"`)
	}
	return res
}

// Instructions validates free-text handling instructions.
func (v *Validator) Instructions(text string) models.ValidationResult {
	res := models.NewValidationResult()
	if len(text) > v.opts.MaxInstructionsLen {
		res.Fail(fmt.Sprintf("special instructions must be at most %d characters long", v.opts.MaxInstructionsLen))
		res.Suggest("Please shorten the instructions")
	}
	return res
}

// CrossValidate checks relationships between fields of a populated record.
// It only produces warnings and suggestions.
func (v *Validator) CrossValidate(p *models.Package) models.ValidationResult {
	res := models.NewValidationResult()
	if p == nil {
		return res
	}
	value := p.Value()

	if p.IsFragile() && !p.InsuranceRequired() && value > 100 {
		res.Warn("Fragile items with high value should consider insurance")
		res.Suggest("Would you like to add insurance for this fragile package?")
	}

	if p.Dimensions != nil && p.Weight != nil {
		if vol := p.Dimensions.VolumeCubicMeters(); vol > 0 {
			density := p.Weight.Kilograms() / vol
			if density > 1000 {
				res.Warn("Package seems very dense. Please verify dimensions and weight.")
			}
			if density < 1 {
				res.Warn("Package seems very light for its size. Please verify.")
			}
		}
	}

	if value > 500 && !p.InsuranceRequired() {
		res.Warn("High-value packages typically require insurance")
		res.Suggest("Consider adding insurance for packages valued over $500")
	}

	if p.Priority == models.PriorityStandard && value > 1000 {
		res.Warn("High-value packages might benefit from express shipping for faster delivery")
	}
	return res
}

// Package checks that every required field is present and valid, then runs
// the cross-field checks.
func (v *Validator) Package(p *models.Package) models.ValidationResult {
	res := models.NewValidationResult()
	if p == nil {
		res.Fail("no package data")
		return res
	}
	for _, f := range p.Missing() {
		res.Fail(fmt.Sprintf("%s is required", f.Label()))
	}
	if p.Type != "" {
		res.Merge(v.PackageType(string(p.Type)))
	}
	if p.Dimensions != nil {
		res.Merge(hardOnly(v.Dimensions(*p.Dimensions)))
	}
	if p.Weight != nil {
		res.Merge(hardOnly(v.Weight(*p.Weight)))
	}
	if p.Priority != "" {
		res.Merge(v.Priority(string(p.Priority)))
	}
	if p.Destination != nil {
		res.Merge(hardOnly(v.Address(*p.Destination)))
	}
	if p.Sender != nil {
		res.Merge(hardOnly(v.Sender(*p.Sender)))
	}
	if p.EstimatedValue != nil {
		res.Merge(v.Value(*p.EstimatedValue, p.Currency))
	}
	res.Merge(v.Instructions(p.SpecialInstructions))
	if !res.IsValid {
		return res
	}

	cross := v.CrossValidate(p)
	res.Warnings = append(res.Warnings, cross.Warnings...)
	res.Suggestions = append(res.Suggestions, cross.Suggestions...)
	return res
}

// hardOnly drops per-field warnings so a full-record check reports them once,
// at the field's own prompt.
func hardOnly(r models.ValidationResult) models.ValidationResult {
	r.Warnings = []string{}
	return r
}

func joinValues[T ~string](vals []T) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
