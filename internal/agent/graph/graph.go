package graph

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/schema"

	"github.com/autostream-sales-agent/server/internal/agent/graph/nodes"
	"github.com/autostream-sales-agent/server/internal/agent/graph/observers"
	"github.com/autostream-sales-agent/server/internal/agent/model"
	errx "github.com/autostream-sales-agent/server/internal/core/error"
	logx "github.com/autostream-sales-agent/server/pkg/logger"
)

var errNoReply = errors.New("turn produced no reply")

// Runner is the inbound surface of the agent.
type Runner interface {
	// SubmitTurn always returns a result carrying a user-visible reply. The error
	// is set when the result has status error.
	SubmitTurn(ctx context.Context, in model.TurnInput) (model.TurnResult, error)
	ResetSession(ctx context.Context, sessionID string) error
}

// Metrics receives turn level observations.
type Metrics interface {
	TurnCompleted(intent model.Intent, status model.TurnStatus, elapsed time.Duration)
	LeadRegistration(status model.LeadStatus)
	SessionReset()
}

type noopMetrics struct{}

func (noopMetrics) TurnCompleted(model.Intent, model.TurnStatus, time.Duration) {}
func (noopMetrics) LeadRegistration(model.LeadStatus)                          {}
func (noopMetrics) SessionReset()                                              {}

// Config holds everything needed to run turns end-to-end.
type Config struct {
	Store  model.StateRepository
	Locker model.SessionLocker

	Classifier    nodes.Node
	Greeting      nodes.Node
	Inquiry       nodes.Node
	LeadCapture   nodes.Node
	ToolExecution nodes.Node

	MaxHops     int
	LockTimeout time.Duration

	Metrics Metrics
	// Handlers observe eino component callbacks. Defaults to observers.NewAllCallbacks.
	Handlers []callbacks.Handler
}

// Agent drives one user turn through classify, route, generate and persist.
type Agent struct {
	store       model.StateRepository
	locker      model.SessionLocker
	steps       map[Step]nodes.Node
	maxHops     int
	lockTimeout time.Duration
	metrics     Metrics
	handlers    []callbacks.Handler
}

// New validates cfg and returns an Agent.
func New(cfg Config) (*Agent, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("state repository is nil")
	}
	if cfg.Locker == nil {
		return nil, fmt.Errorf("session locker is nil")
	}
	steps := map[Step]nodes.Node{
		StepClassify:    cfg.Classifier,
		StepGreeting:    cfg.Greeting,
		StepInquiry:     cfg.Inquiry,
		StepLeadCapture: cfg.LeadCapture,
		StepTool:        cfg.ToolExecution,
	}
	for step, n := range steps {
		if n == nil {
			return nil, fmt.Errorf("node %s is nil", step)
		}
	}

	a := &Agent{
		store:       cfg.Store,
		locker:      cfg.Locker,
		steps:       steps,
		maxHops:     cfg.MaxHops,
		lockTimeout: cfg.LockTimeout,
		metrics:     cfg.Metrics,
		handlers:    cfg.Handlers,
	}
	if a.maxHops <= 0 {
		a.maxHops = model.DefaultAgentConfig().MaxHops
	}
	if a.metrics == nil {
		a.metrics = noopMetrics{}
	}
	if a.handlers == nil {
		a.handlers = []callbacks.Handler{observers.NewAllCallbacks()}
	}

	logx.Debug().Int("max_hops", a.maxHops).Msg("Agent built successfully")
	return a, nil
}

func (a *Agent) SubmitTurn(ctx context.Context, in model.TurnInput) (res model.TurnResult, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("session_id", in.SessionID).Interface("panic", r).Msg("Turn panicked")
			err = fmt.Errorf("turn panicked: %v", r)
			res = failed(in.SessionID, model.IntentUnknown)
		}
		a.metrics.TurnCompleted(res.Intent, res.Status, time.Since(start))
	}()
	return a.submit(ctx, in)
}

func (a *Agent) submit(ctx context.Context, in model.TurnInput) (model.TurnResult, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	msg := strings.TrimSpace(in.Message)
	if sessionID == "" || msg == "" {
		return failed(in.SessionID, model.IntentUnknown), errx.ErrInvalidInput
	}
	log := logx.Session(sessionID)

	unlock, err := a.lock(ctx, sessionID)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to acquire session lock")
		return failed(sessionID, model.IntentUnknown), err
	}
	defer unlock()

	prev, err := a.load(ctx, sessionID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load session state")
		return failed(sessionID, model.IntentUnknown), err
	}

	stats := &model.TurnStats{}
	runCtx := model.WithTurnStats(ctx, stats)
	runCtx = callbacks.InitCallbacks(runCtx, &callbacks.RunInfo{
		Name:      "SalesAgent",
		Type:      "Agent",
		Component: components.Component("Agent"),
	}, a.handlers...)

	final, path, err := a.run(runCtx, prev, msg)
	if err != nil {
		log.Error().Err(err).Strs("path", path).Msg("Turn failed, state not saved")
		return failed(sessionID, prev.Intent), err
	}
	if slices.Contains(path, nodes.NodeToolExecution) {
		a.metrics.LeadRegistration(final.LeadStatus)
	}

	reply, err := replyOf(final, len(prev.History)+1)
	if err != nil {
		log.Error().Err(err).Strs("path", path).Msg("Turn failed, state not saved")
		return failed(sessionID, prev.Intent), err
	}

	final.NextStep = model.NextTerminate
	if err := a.store.SaveState(ctx, final); err != nil {
		log.Error().Err(err).Msg("Failed to save session state")
		return failed(sessionID, prev.Intent), err
	}

	log.Info().
		Str("intent", string(final.Intent)).
		Str("pending_field", string(final.PendingField)).
		Strs("path", path).
		Int("llm_calls", stats.LLMCalls).
		Float64("total_cost_usd", stats.TotalCostUSD).
		Msg("Turn completed")

	return model.TurnResult{
		SessionID:    sessionID,
		Reply:        reply,
		Intent:       final.Intent,
		Status:       model.StatusSuccess,
		Path:         path,
		PendingField: final.PendingField,
		Lead:         final.Lead,
		TotalCostUSD: stats.TotalCostUSD,
	}, nil
}

// run executes the state machine on a working copy of s. Nothing is persisted here.
func (a *Agent) run(ctx context.Context, s model.State, msg string) (model.State, []string, error) {
	s = model.Reduce(s, model.Delta{Messages: []*schema.Message{schema.UserMessage(msg)}})

	var path []string
	step := StepClassify
	for hop := 0; step != StepEnd; hop++ {
		if hop >= a.maxHops {
			return s, path, fmt.Errorf("%w after %d hops", errx.ErrHopLimit, hop)
		}
		n := a.steps[step]
		if step != StepClassify {
			// the signal is consumed by the step that follows its producer
			s.NextStep = model.NextTerminate
		}

		d, err := n.Run(ctx, s)
		if err != nil {
			return s, path, fmt.Errorf("%s: %w", n.Name(), err)
		}
		s = model.Reduce(s, d)
		path = append(path, n.Name())

		logx.Debug().
			Str("session_id", s.SessionID).
			Int("hop", hop).
			Str("node", n.Name()).
			Str("intent", string(s.Intent)).
			Str("pending_field", string(s.PendingField)).
			Str("next_step", string(s.NextStep)).
			Msg("Step completed")

		step = next(step, s)
	}
	return s, path, nil
}

func (a *Agent) ResetSession(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return errx.ErrInvalidInput
	}
	unlock, err := a.lock(ctx, sessionID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := a.store.DeleteState(ctx, sessionID); err != nil {
		sessLog := logx.Session(sessionID)
		sessLog.Error().Err(err).Msg("Failed to reset session")
		return err
	}
	a.metrics.SessionReset()
	sessLog := logx.Session(sessionID)
	sessLog.Info().Msg("Session reset")
	return nil
}

func (a *Agent) lock(ctx context.Context, sessionID string) (func(), error) {
	if a.lockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.lockTimeout)
		defer cancel()
	}
	return a.locker.Lock(ctx, sessionID)
}

// load returns the stored state, or fresh defaults when none exists or it is malformed.
func (a *Agent) load(ctx context.Context, sessionID string) (model.State, error) {
	st, err := a.store.LoadState(ctx, sessionID)
	if err != nil {
		return model.State{}, err
	}
	if st == nil {
		return model.NewState(sessionID), nil
	}
	if err := st.Validate(); err != nil {
		sessLog := logx.Session(sessionID)
		sessLog.Warn().Err(err).Msg("Stored state is malformed, starting fresh")
		return model.NewState(sessionID), nil
	}
	st.SessionID = sessionID
	if st.History == nil {
		st.History = []*schema.Message{}
	}
	return *st, nil
}

// replyOf joins the assistant messages appended from index from on.
func replyOf(s model.State, from int) (string, error) {
	var parts []string
	for _, m := range s.History[min(from, len(s.History)):] {
		if m.Role == schema.Assistant && strings.TrimSpace(m.Content) != "" {
			parts = append(parts, m.Content)
		}
	}
	if len(parts) == 0 {
		return "", errNoReply
	}
	return strings.Join(parts, "\n\n"), nil
}

func failed(sessionID string, intent model.Intent) model.TurnResult {
	return model.TurnResult{
		SessionID: sessionID,
		Reply:     errx.ApologyMessage,
		Intent:    intent,
		Status:    model.StatusError,
	}
}
