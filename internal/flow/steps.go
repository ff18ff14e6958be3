package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/ParcelPipe/internal/models"
	"github.com/BTreeMap/ParcelPipe/internal/nlu"
)

// capture is the outcome of reading one field from an utterance.
type capture struct {
	apply      func(p *models.Package)
	validation models.ValidationResult
	warnings   []string
	remember   func(sess Session)
}

// captureFunc extracts and validates the field. It returns ErrExtractionMiss
// when nothing usable was found.
type captureFunc func(e *Engine, t turn) (capture, error)

// fieldStep describes one state of the linear collection sequence.
type fieldStep struct {
	state    models.ConversationState
	field    models.Field
	next     models.ConversationState
	optional bool
	miss     string
	capture  captureFunc
}

// steps is the collection sequence, in order.
var steps = []fieldStep{
	{
		state: models.StateAskingPackageType, field: models.FieldPackageType, next: models.StateAskingDimensions,
		miss:    "I didn't catch the package type. Please choose: box, envelope, crate, pallet, tube, or other.",
		capture: capturePackageType,
	},
	{
		state: models.StateAskingDimensions, field: models.FieldDimensions, next: models.StateAskingWeight,
		miss:    `Please provide dimensions in format: "length x width x height unit" (e.g., "10 x 5 x 3 cm").`,
		capture: captureDimensions,
	},
	{
		state: models.StateAskingWeight, field: models.FieldWeight, next: models.StateAskingFragile,
		miss:    `Please provide weight with unit (e.g., "5 kg", "10 lbs", "500 g").`,
		capture: captureWeight,
	},
	{
		state: models.StateAskingFragile, field: models.FieldFragile, next: models.StateAskingPriority,
		miss:    "Please answer yes or no.",
		capture: captureFragile,
	},
	{
		state: models.StateAskingPriority, field: models.FieldPriority, next: models.StateAskingDestination,
		miss:    "Please choose: standard, express, overnight, or same_day.",
		capture: capturePriority,
	},
	{
		state: models.StateAskingDestination, field: models.FieldDestination, next: models.StateAskingSender,
		miss: `I couldn't read that address. Please use one of these formats:

123 Main Street, Springfield, IL, 62701, USA

or on separate lines:
Street address
City, State
Postal code Country`,
		capture: captureDestination,
	},
	{
		state: models.StateAskingSender, field: models.FieldSender, next: models.StateAskingSpecialInstructions,
		optional: true,
		miss:     `Please provide the sender's name and optionally email/phone, or type "skip".`,
		capture:  captureSender,
	},
	{
		state: models.StateAskingSpecialInstructions, field: models.FieldSpecialInstructions, next: models.StateAskingValue,
		optional: true,
		miss:     `Please type the handling instructions, or "skip".`,
		capture:  captureInstructions,
	},
	{
		state: models.StateAskingValue, field: models.FieldValue, next: models.StateAskingInsurance,
		optional: true,
		miss:     `Please enter a valid amount (e.g., "100", "$250.50") or "skip".`,
		capture:  captureValue,
	},
	{
		state: models.StateAskingInsurance, field: models.FieldInsurance, next: models.StateAskingTrackingPrefs,
		optional: true,
		miss:     "Please answer yes or no.",
		capture:  captureInsurance,
	},
	{
		state: models.StateAskingTrackingPrefs, field: models.FieldTracking, next: models.StatePackageSummary,
		optional: true,
		miss:     `Please choose any of: email, SMS, signature required. Say "no" for none or "skip".`,
		capture:  captureTracking,
	},
}

func stepFor(state models.ConversationState) (fieldStep, bool) {
	for _, s := range steps {
		if s.state == state {
			return s, true
		}
	}
	return fieldStep{}, false
}

func stepForField(f models.Field) (fieldStep, bool) {
	for _, s := range steps {
		if s.field == f {
			return s, true
		}
	}
	return fieldStep{}, false
}

// handleField runs the shared same-as-last / skip / extract / validate /
// commit sequence for a collection state.
func (e *Engine) handleField(ctx context.Context, sess Session, step fieldStep, t turn) models.Reply {
	if step.state == models.StateAskingPackageType && t.nlu.Intent == models.IntentUseTemplate {
		return e.applyTemplate(sess, t)
	}

	miss := step.miss
	if t.nlu.Intent == models.IntentSameAsLast {
		if last := sess.LastRecord(); last != nil && last.Has(step.field) {
			sess.UpdateRecord(func(p *models.Package) { p.CopyField(step.field, last) })
			slog.Debug("Engine.handleField: copied from last", "sessionID", sess.ID(), "field", step.field)
			return e.advance(sess, step, nil)
		}
		// Nothing to copy: extract from whatever else the user said.
		slog.Debug("Engine.handleField: nothing to copy", "error", ErrStructuralGap, "sessionID", sess.ID(), "field", step.field)
		miss = fmt.Sprintf("There's no previous %s to copy.\n\n%s", step.field.Label(), step.miss)
		rest := nlu.StripIntent(t.text, models.IntentSameAsLast)
		if rest == "" {
			return e.retry(sess, step, miss, ErrExtractionMiss)
		}
		t = turn{text: rest, nlu: e.nlu.Process(rest)}
	}

	if step.optional && t.nlu.Intent == models.IntentSkip {
		slog.Debug("Engine.handleField: skipped", "sessionID", sess.ID(), "field", step.field)
		return e.advance(sess, step, nil)
	}

	c, err := step.capture(e, t)
	if err != nil {
		return e.retry(sess, step, miss, err)
	}
	if !c.validation.IsValid {
		return e.retry(sess, step, validationMessage(c.validation), ErrValidationFailure)
	}

	sess.UpdateRecord(c.apply)
	if c.remember != nil {
		c.remember(sess)
	}
	warnings := append(c.warnings, c.validation.Warnings...)
	return e.advance(sess, step, warnings)
}

// advance leaves step's state for the next question, or for the summary when
// the field was being edited.
func (e *Engine) advance(sess Session, step fieldStep, warnings []string) models.Reply {
	if sess.Editing() || step.next == models.StatePackageSummary {
		sess.SetEditing(false)
		return e.showSummary(sess, warnings)
	}
	e.leaveState(sess, step.next)
	return promptFor(step.next, false, warnings)
}

// retry re-asks the current question. Once the field has failed maxRetries-1
// times in a row the escape hint is appended and the counter starts over.
func (e *Engine) retry(sess Session, step fieldStep, msg string, cause error) models.Reply {
	n := sess.Retries(step.field)
	if n >= e.maxRetries-1 {
		sess.ResetRetries(step.field)
		msg += "\n\n" + retryHint
	} else {
		sess.SetRetries(step.field, n+1)
	}
	slog.Debug("Engine.retry", "sessionID", sess.ID(), "field", step.field, "retries", n+1, "cause", cause)
	return models.Reply{
		Message:     msg,
		Suggestions: prompts[step.state].suggestions,
		NeedsInput:  true,
		State:       step.state,
		Error:       errorCode(cause),
	}
}

func validationMessage(vr models.ValidationResult) string {
	msg := strings.Join(vr.Errors, "\n")
	if len(vr.Suggestions) > 0 {
		msg += "\n\n" + strings.Join(vr.Suggestions, "\n")
	}
	return msg
}

// showSummary enters the summary state and renders the in-progress record
// with any cross-field warnings.
func (e *Engine) showSummary(sess Session, warnings []string) models.Reply {
	e.leaveState(sess, models.StatePackageSummary)
	rec := sess.CurrentRecord()
	if rec == nil {
		return e.noRecord(sess)
	}
	cross := e.validator.CrossValidate(rec)
	warnings = append(warnings, cross.Warnings...)
	return models.Reply{
		Message:     withWarnings(renderPackage(rec), warnings),
		Suggestions: []string{"Yes", "No", "Edit"},
		NeedsInput:  true,
		State:       models.StatePackageSummary,
	}
}

// noRecord recovers from reaching a record-dependent state without an
// in-progress record.
func (e *Engine) noRecord(sess Session) models.Reply {
	slog.Warn("Engine: no in-progress record", "error", ErrStructuralGap, "sessionID", sess.ID(), "state", sess.CurrentState())
	if len(sess.CommittedRecords()) > 0 {
		e.leaveState(sess, models.StateAskingContinue)
		return models.Reply{
			Message:     "There's no package in progress. Would you like to add another package?",
			Suggestions: []string{"Yes", "No, I'm done"},
			NeedsInput:  true,
			State:       models.StateAskingContinue,
		}
	}
	e.leaveState(sess, models.StateWelcome)
	return models.Reply{
		Message:     "There's no package in progress. Would you like to add one?",
		Suggestions: []string{"Yes, add a package", "Help"},
		NeedsInput:  true,
		State:       models.StateWelcome,
	}
}

func capturePackageType(e *Engine, t turn) (capture, error) {
	pt, ok := parsePackageType(t.text, t.nlu)
	if !ok {
		return capture{}, ErrExtractionMiss
	}
	return capture{
		apply:      func(p *models.Package) { p.Type = pt },
		validation: e.validator.PackageType(string(pt)),
	}, nil
}

func captureDimensions(e *Engine, t turn) (capture, error) {
	d, warning, ok := parseDimensions(t.text, t.nlu)
	if !ok {
		return capture{}, ErrExtractionMiss
	}
	c := capture{
		apply:      func(p *models.Package) { p.Dimensions = &d },
		validation: e.validator.Dimensions(d),
	}
	if warning != "" {
		c.warnings = []string{warning}
	}
	return c, nil
}

func captureWeight(e *Engine, t turn) (capture, error) {
	w, ok := parseWeight(t.text, t.nlu)
	if !ok {
		return capture{}, ErrExtractionMiss
	}
	return capture{
		apply:      func(p *models.Package) { p.Weight = &w },
		validation: e.validator.Weight(w),
	}, nil
}

func captureFragile(e *Engine, t turn) (capture, error) {
	b, ok := parseFragile(t.text, t.nlu)
	if !ok {
		return capture{}, ErrExtractionMiss
	}
	return capture{
		apply:      func(p *models.Package) { p.Fragile = models.BoolPtr(b) },
		validation: models.NewValidationResult(),
	}, nil
}

func capturePriority(e *Engine, t turn) (capture, error) {
	pr, ok := parsePriority(t.text, t.nlu)
	if !ok {
		return capture{}, ErrExtractionMiss
	}
	return capture{
		apply:      func(p *models.Package) { p.Priority = pr },
		validation: e.validator.Priority(string(pr)),
	}, nil
}

func captureDestination(e *Engine, t turn) (capture, error) {
	a, ok := parseAddress(t.text)
	if !ok {
		return capture{}, ErrExtractionMiss
	}
	return capture{
		apply:      func(p *models.Package) { p.Destination = &a },
		validation: e.validator.Address(a),
		remember:   func(sess Session) { sess.AddCommonAddress(a) },
	}, nil
}

func captureSender(e *Engine, t turn) (capture, error) {
	s, ok := parseSender(t.text, t.nlu)
	if !ok {
		return capture{}, ErrExtractionMiss
	}
	return capture{
		apply:      func(p *models.Package) { p.Sender = &s },
		validation: e.validator.Sender(s),
		remember:   func(sess Session) { sess.SetDefaultSender(s) },
	}, nil
}

func captureInstructions(e *Engine, t turn) (capture, error) {
	text := strings.TrimSpace(t.text)
	if text == "" {
		return capture{}, ErrExtractionMiss
	}
	return capture{
		apply:      func(p *models.Package) { p.SpecialInstructions = text },
		validation: e.validator.Instructions(text),
	}, nil
}

func captureValue(e *Engine, t turn) (capture, error) {
	amount, currency, ok := parseValue(t.text, e.defaultCurrency)
	if !ok {
		return capture{}, ErrExtractionMiss
	}
	return capture{
		apply: func(p *models.Package) {
			p.EstimatedValue = models.Float64Ptr(amount)
			p.Currency = currency
		},
		validation: e.validator.Value(amount, currency),
	}, nil
}

func captureInsurance(e *Engine, t turn) (capture, error) {
	b, ok := parseYesNo(t.nlu)
	if !ok {
		return capture{}, ErrExtractionMiss
	}
	return capture{
		apply:      func(p *models.Package) { p.Insurance = models.BoolPtr(b) },
		validation: models.NewValidationResult(),
	}, nil
}

func captureTracking(e *Engine, t turn) (capture, error) {
	prefs, ok := parseTracking(t.text, t.nlu)
	if !ok {
		return capture{}, ErrExtractionMiss
	}
	return capture{
		apply:      func(p *models.Package) { p.Tracking = &prefs },
		validation: models.NewValidationResult(),
	}, nil
}

// describeMissing renders required fields for a prompt.
func describeMissing(fields []models.Field) string {
	labels := make([]string, len(fields))
	for i, f := range fields {
		labels[i] = f.Label()
	}
	return strings.Join(labels, ", ")
}

func templateError(name string, names []string) string {
	if len(names) == 0 {
		return fmt.Sprintf("I couldn't find a template named %q, and no templates have been saved yet.", name)
	}
	return fmt.Sprintf("I couldn't find a template named %q. Saved templates: %s", name, strings.Join(names, ", "))
}
