package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/BTreeMap/ParcelPipe/internal/models"
	"github.com/BTreeMap/ParcelPipe/internal/nlu"
	"github.com/BTreeMap/ParcelPipe/internal/validate"
)

// DefaultMaxRetries is the number of failed answers for one field after which
// the escape hint is shown.
const DefaultMaxRetries = 3

// Opts holds engine configuration.
type Opts struct {
	MaxRetries      int
	Validator       *validate.Validator
	Processor       *nlu.Processor
	Signaler        Signaler
	DefaultCurrency string
}

// Option configures an Engine.
type Option func(*Opts)

// WithMaxRetries sets the retry bound. Values below 1 keep the default.
func WithMaxRetries(n int) Option {
	return func(o *Opts) {
		o.MaxRetries = n
	}
}

// WithValidator replaces the default field validator.
func WithValidator(v *validate.Validator) Option {
	return func(o *Opts) {
		o.Validator = v
	}
}

// WithProcessor replaces the default NLU processor.
func WithProcessor(p *nlu.Processor) Option {
	return func(o *Opts) {
		o.Processor = p
	}
}

// WithSignaler sets the collaborator that receives export/finish/pause signals.
func WithSignaler(s Signaler) Option {
	return func(o *Opts) {
		o.Signaler = s
	}
}

// WithDefaultCurrency sets the currency assumed for bare amounts.
func WithDefaultCurrency(code string) Option {
	return func(o *Opts) {
		o.DefaultCurrency = code
	}
}

// Engine runs one conversation turn at a time against a Session. It holds no
// per-session state and may be shared by any number of sessions.
type Engine struct {
	nlu             *nlu.Processor
	validator       *validate.Validator
	signaler        Signaler
	maxRetries      int
	defaultCurrency string
	handlers        map[models.ConversationState]stateHandler
}

type stateHandler func(ctx context.Context, sess Session, t turn) models.Reply

// turn carries the raw utterance and its interpretation through a handler.
type turn struct {
	text string
	nlu  nlu.Result
}

// NewEngine creates an Engine, applying any provided options.
func NewEngine(opts ...Option) *Engine {
	cfg := Opts{MaxRetries: DefaultMaxRetries, DefaultCurrency: "USD"}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.Validator == nil {
		cfg.Validator = validate.New()
	}
	if cfg.Processor == nil {
		cfg.Processor = nlu.NewProcessor()
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "USD"
	}

	e := &Engine{
		nlu:             cfg.Processor,
		validator:       cfg.Validator,
		signaler:        cfg.Signaler,
		maxRetries:      cfg.MaxRetries,
		defaultCurrency: cfg.DefaultCurrency,
	}
	e.handlers = map[models.ConversationState]stateHandler{
		models.StateWelcome:        e.handleWelcome,
		models.StatePackageSummary: e.handleSummary,
		models.StateEditing:        e.handleEditing,
		models.StateAskingContinue: e.handleContinue,
		models.StateCompleted:      e.handleCompleted,
	}
	for _, step := range steps {
		e.handlers[step.state] = func(ctx context.Context, sess Session, t turn) models.Reply {
			return e.handleField(ctx, sess, step, t)
		}
	}
	slog.Debug("NewEngine", "maxRetries", cfg.MaxRetries, "defaultCurrency", cfg.DefaultCurrency, "signaler", cfg.Signaler != nil)
	return e
}

// Welcome returns the greeting shown when a session starts.
func (e *Engine) Welcome() models.Reply {
	return models.Reply{
		Message:     welcomeMessage,
		Suggestions: []string{"Yes, add a package", "Help", "View commands"},
		NeedsInput:  true,
		State:       models.StateWelcome,
	}
}

// ProcessInput handles one user utterance and returns the reply. User-facing
// problems are reported inside the reply, never as errors.
func (e *Engine) ProcessInput(ctx context.Context, sess Session, text string) (reply models.Reply) {
	res := e.nlu.Process(text)
	sess.AddHistoryEntry(models.RoleUser, text, res.Intent)
	slog.Debug("Engine.ProcessInput", "sessionID", sess.ID(), "state", sess.CurrentState(), "intent", res.Intent)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Engine.ProcessInput: recovered from panic", "sessionID", sess.ID(), "state", sess.CurrentState(), "panic", r)
			reply = e.unhandled(sess.CurrentState())
		}
		sess.AddHistoryEntry(models.RoleBot, reply.Message, "")
	}()

	t := turn{text: text, nlu: res}
	if res.Intent.IsGlobal() {
		return e.handleGlobal(ctx, sess, t)
	}
	return e.dispatch(ctx, sess, t)
}

func (e *Engine) dispatch(ctx context.Context, sess Session, t turn) models.Reply {
	state := sess.CurrentState()
	h, ok := e.handlers[state]
	if !ok {
		slog.Error("Engine.dispatch: no handler", "error", ErrUnhandledState, "sessionID", sess.ID(), "state", state)
		return e.unhandled(state)
	}
	return h(ctx, sess, t)
}

func (e *Engine) unhandled(state models.ConversationState) models.Reply {
	return models.Reply{
		Message:    `I'm not sure what to do here. Type "help" for assistance.`,
		NeedsInput: true,
		State:      state,
		Error:      errorCode(ErrUnhandledState),
	}
}

// leaveState moves the session to next, resetting the retry counter of the
// field being left.
func (e *Engine) leaveState(sess Session, next models.ConversationState) {
	cur := sess.CurrentState()
	if step, ok := stepFor(cur); ok && cur != next {
		sess.ResetRetries(step.field)
	}
	sess.SetState(next)
}

func (e *Engine) handleGlobal(ctx context.Context, sess Session, t turn) models.Reply {
	switch t.nlu.Intent {
	case models.IntentHelp:
		return models.Reply{Message: helpMessage, NeedsInput: true, State: sess.CurrentState()}
	case models.IntentViewSummary:
		return e.viewSummary(sess)
	case models.IntentFinish:
		return e.finish(ctx, sess)
	case models.IntentCancel:
		sess.Clear()
		slog.Info("Engine: session cancelled", "sessionID", sess.ID())
		return models.Reply{
			Message:    "Session cancelled. All data cleared. Type anything to start fresh.",
			NeedsInput: true,
			State:      sess.CurrentState(),
		}
	case models.IntentPause:
		e.signal(ctx, sess, models.SignalPause, map[string]any{"state": sess.CurrentState()}, "")
		return models.Reply{
			Message:    fmt.Sprintf("Session paused and saved!\n\nSession ID: %s\n\nYou can resume later by providing this ID.", sess.ID()),
			NeedsInput: false,
			State:      sess.CurrentState(),
		}
	case models.IntentExport:
		pkgs := sess.CommittedRecords()
		if len(pkgs) == 0 {
			return models.Reply{Message: "There are no packages to export yet.", NeedsInput: true, State: sess.CurrentState()}
		}
		e.signal(ctx, sess, models.SignalExport, map[string]any{"packages": pkgs}, "")
		return models.Reply{
			Message:    fmt.Sprintf("Export requested for %d package(s). You'll be notified when it's ready.", len(pkgs)),
			NeedsInput: true,
			State:      sess.CurrentState(),
		}
	}
	slog.Error("Engine.handleGlobal: unexpected intent", "sessionID", sess.ID(), "intent", t.nlu.Intent)
	return e.dispatch(ctx, sess, t)
}

func (e *Engine) viewSummary(sess Session) models.Reply {
	pkgs := sess.CommittedRecords()
	if len(pkgs) == 0 {
		return models.Reply{Message: "No packages added yet. Would you like to add one?", NeedsInput: true, State: sess.CurrentState()}
	}
	return models.Reply{Message: renderCommitted(pkgs), NeedsInput: true, State: sess.CurrentState()}
}

func (e *Engine) finish(ctx context.Context, sess Session) models.Reply {
	pkgs := sess.CommittedRecords()
	if len(pkgs) == 0 {
		e.leaveState(sess, models.StateWelcome)
		return models.Reply{
			Message:     `No packages to export. Session ended. Type "add" to start adding packages!`,
			Suggestions: []string{"Add package", "Help"},
			NeedsInput:  true,
			State:       models.StateWelcome,
		}
	}
	e.leaveState(sess, models.StateCompleted)
	e.signal(ctx, sess, models.SignalFinish, map[string]any{"packages": pkgs},
		fmt.Sprintf("%s:%s:%d", sess.ID(), models.SignalFinish, len(pkgs)))
	slog.Info("Engine: session completed", "sessionID", sess.ID(), "packages", len(pkgs))
	return models.Reply{
		Message: fmt.Sprintf(`Session completed!

Total packages collected: %d

Your data has been saved. You can request a copy with the "export" command.

Thank you for using ParcelPipe!`, len(pkgs)),
		NeedsInput: false,
		State:      models.StateCompleted,
	}
}

// signal enqueues a signal. Failures are logged and never reach the user.
func (e *Engine) signal(ctx context.Context, sess Session, kind models.SignalKind, payload map[string]any, dedupeKey string) {
	if e.signaler == nil {
		slog.Debug("Engine.signal: no signaler configured", "sessionID", sess.ID(), "kind", kind)
		return
	}
	payload["session_id"] = sess.ID()
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Engine.signal: marshal failed", "error", err, "sessionID", sess.ID(), "kind", kind)
		return
	}
	id, err := e.signaler.EnqueueSignal(ctx, sess.ID(), kind, string(data), dedupeKey)
	if err != nil {
		slog.Error("Engine.signal: enqueue failed", "error", err, "sessionID", sess.ID(), "kind", kind)
		return
	}
	slog.Debug("Engine.signal: enqueued", "sessionID", sess.ID(), "kind", kind, "signalID", id)
}
