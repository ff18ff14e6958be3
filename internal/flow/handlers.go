package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BTreeMap/ParcelPipe/internal/models"
)

func (e *Engine) handleWelcome(ctx context.Context, sess Session, t turn) models.Reply {
	switch t.nlu.Intent {
	case models.IntentConfirm, models.IntentAddPackage:
		sess.StartRecord()
		e.leaveState(sess, models.StateAskingPackageType)
		return promptFor(models.StateAskingPackageType, false, nil)
	case models.IntentUseTemplate:
		sess.StartRecord()
		e.leaveState(sess, models.StateAskingPackageType)
		return e.applyTemplate(sess, t)
	}
	return models.Reply{
		Message:     `No problem! When you're ready to add a package, just let me know. Type "help" for more options.`,
		Suggestions: []string{"Yes, add a package", "Help"},
		NeedsInput:  true,
		State:       models.StateWelcome,
	}
}

func (e *Engine) handleSummary(ctx context.Context, sess Session, t turn) models.Reply {
	rec := sess.CurrentRecord()
	if rec == nil {
		return e.noRecord(sess)
	}

	switch t.nlu.Intent {
	case models.IntentConfirm:
		return e.commit(sess, rec)
	case models.IntentDeny, models.IntentEditPackage:
		if f, ok := editTarget(t.text); ok {
			return e.startEdit(sess, f)
		}
		e.leaveState(sess, models.StateEditing)
		return models.Reply{
			Message:     `What would you like to edit? (e.g., "change weight", "edit destination")`,
			Suggestions: []string{"Weight", "Dimensions", "Destination", "Priority", "Back"},
			NeedsInput:  true,
			State:       models.StateEditing,
		}
	case models.IntentSaveTemplate:
		name := parseTemplateName(t.text)
		sess.SaveTemplate(name, *rec)
		slog.Info("Engine: template saved", "sessionID", sess.ID(), "template", name)
		return models.Reply{
			Message:     fmt.Sprintf("Saved this package as template %q.\n\nIs this information correct? (yes/no/edit)", name),
			Suggestions: []string{"Yes", "No", "Edit"},
			NeedsInput:  true,
			State:       models.StatePackageSummary,
		}
	}
	return models.Reply{
		Message:     `Please confirm if the package details are correct (yes/no), or say "edit" to make changes.`,
		Suggestions: []string{"Yes", "No", "Edit"},
		NeedsInput:  true,
		State:       models.StatePackageSummary,
	}
}

// commit moves a complete record to the committed list. An incomplete record
// sends the user to its first missing field instead.
func (e *Engine) commit(sess Session, rec *models.Package) models.Reply {
	vr := e.validator.Package(rec)
	if !vr.IsValid {
		if missing := rec.Missing(); len(missing) > 0 {
			step, _ := stepForField(missing[0])
			sess.SetEditing(true)
			e.leaveState(sess, step.state)
			r := promptFor(step.state, true, nil)
			r.Message = fmt.Sprintf("Before saving, I still need: %s.\n\n%s", describeMissing(missing), r.Message)
			r.Error = CodeValidationFailed
			return r
		}
		e.leaveState(sess, models.StateEditing)
		return models.Reply{
			Message:    validationMessage(vr) + "\n\nWhich field would you like to change?",
			NeedsInput: true,
			State:      models.StateEditing,
			Error:      CodeValidationFailed,
		}
	}

	pkg, ok := sess.CompleteRecord()
	if !ok {
		return e.noRecord(sess)
	}
	e.leaveState(sess, models.StateAskingContinue)
	slog.Info("Engine: package committed", "sessionID", sess.ID(), "packageID", pkg.ID)
	return models.Reply{
		Message:     "Package saved successfully! ✓\n\nWould you like to add another package?",
		Suggestions: []string{"Yes", "No, I'm done", "View summary"},
		NeedsInput:  true,
		State:       models.StateAskingContinue,
	}
}

func (e *Engine) startEdit(sess Session, f models.Field) models.Reply {
	step, ok := stepForField(f)
	if !ok {
		return e.unhandled(sess.CurrentState())
	}
	sess.SetEditing(true)
	e.leaveState(sess, step.state)
	return promptFor(step.state, true, nil)
}

func (e *Engine) handleEditing(ctx context.Context, sess Session, t turn) models.Reply {
	if sess.CurrentRecord() == nil {
		sess.SetEditing(false)
		return e.noRecord(sess)
	}
	if f, ok := editTarget(t.text); ok {
		return e.startEdit(sess, f)
	}
	if t.nlu.Intent == models.IntentDeny || backPattern.MatchString(t.text) {
		sess.SetEditing(false)
		return e.showSummary(sess, nil)
	}
	return models.Reply{
		Message:     editableFieldsMessage,
		Suggestions: []string{"Weight", "Dimensions", "Destination", "Priority", "Back"},
		NeedsInput:  true,
		State:       models.StateEditing,
	}
}

func (e *Engine) handleContinue(ctx context.Context, sess Session, t turn) models.Reply {
	switch t.nlu.Intent {
	case models.IntentConfirm, models.IntentAddPackage:
		sess.StartRecord()
		e.leaveState(sess, models.StateAskingPackageType)
		return models.Reply{
			Message:     "Great! Let's add another package. What type of package is this?",
			Suggestions: []string{"Box", "Envelope", "Crate", "Same as last"},
			NeedsInput:  true,
			State:       models.StateAskingPackageType,
		}
	case models.IntentUseTemplate:
		sess.StartRecord()
		e.leaveState(sess, models.StateAskingPackageType)
		return e.applyTemplate(sess, t)
	case models.IntentDeletePackage:
		return e.deleteRecord(sess, t)
	case models.IntentSaveTemplate:
		last := sess.LastRecord()
		if last == nil {
			return e.noRecord(sess)
		}
		name := parseTemplateName(t.text)
		sess.SaveTemplate(name, *last)
		slog.Info("Engine: template saved", "sessionID", sess.ID(), "template", name)
		return models.Reply{
			Message:     fmt.Sprintf("Saved your last package as template %q.\n\nWould you like to add another package?", name),
			Suggestions: []string{"Yes", "No, I'm done"},
			NeedsInput:  true,
			State:       models.StateAskingContinue,
		}
	}
	return e.finish(ctx, sess)
}

func (e *Engine) deleteRecord(sess Session, t turn) models.Reply {
	reply := models.Reply{
		Suggestions: []string{"Yes", "No, I'm done", "View summary"},
		NeedsInput:  true,
		State:       models.StateAskingContinue,
	}
	idx, ok := parseRecordNumber(t.text)
	if !ok {
		reply.Message = `Which package should I delete? Say "delete package 2", for example.`
		return reply
	}
	if !sess.DeleteRecord(idx) {
		reply.Message = fmt.Sprintf("There is no package %d. You have %d package(s).", idx+1, len(sess.CommittedRecords()))
		return reply
	}
	slog.Info("Engine: package deleted", "sessionID", sess.ID(), "index", idx)
	reply.Message = fmt.Sprintf("Deleted package %d. You now have %d package(s).\n\nWould you like to add another package?", idx+1, len(sess.CommittedRecords()))
	return reply
}

func (e *Engine) handleCompleted(ctx context.Context, sess Session, t turn) models.Reply {
	sess.Clear()
	switch t.nlu.Intent {
	case models.IntentConfirm, models.IntentAddPackage:
		sess.StartRecord()
		sess.SetState(models.StateAskingPackageType)
		return promptFor(models.StateAskingPackageType, false, nil)
	}
	return e.Welcome()
}

// applyTemplate copies every field the named template holds into the
// in-progress record, then asks for the first missing field or shows the
// summary.
func (e *Engine) applyTemplate(sess Session, t turn) models.Reply {
	name := parseTemplateName(t.text)
	tpl, ok := sess.Template(name)
	if !ok {
		return models.Reply{
			Message:    templateError(name, sess.TemplateNames()),
			NeedsInput: true,
			State:      sess.CurrentState(),
		}
	}
	sess.UpdateRecord(func(p *models.Package) {
		for _, f := range models.Fields {
			p.CopyField(f, tpl)
		}
	})
	note := []string{fmt.Sprintf("Loaded template %q.", name)}
	missing := sess.CurrentRecord().Missing()
	if len(missing) == 0 {
		return e.showSummary(sess, note)
	}
	step, _ := stepForField(missing[0])
	sess.SetEditing(true)
	e.leaveState(sess, step.state)
	return promptFor(step.state, false, note)
}
