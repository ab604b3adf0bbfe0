// Package flow provides the data merge coordinator that drives one session
// from configuration fetch to publication.
package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"sync"
	"time"

	"github.com/BTreeMap/PayFlow/internal/models"
	"github.com/google/uuid"
)

// Flow drives a single session of one flow kind. A Flow is started once; it
// fetches the configuration exactly once and produces at most one published
// data set.
type Flow struct {
	id     string
	kind   models.FlowKind
	sdk    *models.SDKConfiguration
	config models.FlowConfiguration
	deps   Dependencies

	stop     chan models.Result
	loaded   chan struct{}
	done     chan struct{}
	doneOnce sync.Once

	mu         sync.Mutex
	state      models.StateType
	started    bool
	running    bool
	result     models.Result
	completion func(models.Result)
	sess       *session // owned by the session goroutine once started
}

// New creates a Flow for kind. The typed configuration must match the kind;
// a missing or mismatched configuration is a programmer error and is
// reported as ErrInvalidConfiguration.
func New(kind models.FlowKind, sdk *models.SDKConfiguration, cfg models.FlowConfiguration, deps Dependencies) (*Flow, error) {
	if _, ok := Get(kind); !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidFlowKind, kind)
	}
	if err := checkConfiguration(kind, cfg); err != nil {
		return nil, err
	}
	if deps.Connectivity == nil || deps.Configuration == nil || deps.Presenter == nil {
		return nil, errors.New("flow: connectivity, configuration and presenter dependencies are required")
	}
	if kind == models.FlowKindUpdateEnrollment && deps.AccountData == nil {
		return nil, errors.New("flow: update enrollment requires an account data fetcher")
	}
	var sdkCopy *models.SDKConfiguration
	if sdk != nil {
		c := *sdk
		sdkCopy = &c
	}
	f := &Flow{
		id:     uuid.NewString(),
		kind:   kind,
		sdk:    sdkCopy,
		config: cfg,
		deps:   deps,
		stop:   make(chan models.Result, 1),
		loaded: make(chan struct{}),
		done:   make(chan struct{}),
		state:  models.StateIdle,
	}
	slog.Debug("Flow created", "sessionID", f.id, "kind", kind)
	return f, nil
}

func checkConfiguration(kind models.FlowKind, cfg models.FlowConfiguration) error {
	want, err := models.NewFlowConfiguration(kind)
	if err != nil {
		return err
	}
	if v := reflect.ValueOf(cfg); cfg == nil || (v.Kind() == reflect.Pointer && v.IsNil()) {
		return fmt.Errorf("%w: no configuration supplied for %s", models.ErrInvalidConfiguration, kind)
	}
	if fmt.Sprintf("%T", cfg) != fmt.Sprintf("%T", want) {
		return invalidConfiguration(fmt.Sprintf("%T", want), cfg)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidConfiguration, err)
	}
	return nil
}

// ID returns the session identifier.
func (f *Flow) ID() string { return f.id }

// Kind returns the flow kind.
func (f *Flow) Kind() models.FlowKind { return f.kind }

// State returns the current session state.
func (f *Flow) State() models.StateType {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Result returns the mapping delivered to the completion callback, once the
// session has ended.
func (f *Flow) Result() (models.Result, bool) {
	select {
	case <-f.done:
	default:
		return nil, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, true
}

// Loaded is closed once a data set has been published.
func (f *Flow) Loaded() <-chan struct{} { return f.loaded }

// Done is closed once the session has ended and the completion callback ran.
func (f *Flow) Done() <-chan struct{} { return f.done }

// Start begins the session. Connectivity is checked synchronously; when it is
// absent the session fails immediately with the network-error result and
// ErrNetworkUnavailable is returned. Otherwise the fetches run on a session
// goroutine and Start returns nil. completion is invoked exactly once, when
// the session ends.
func (f *Flow) Start(ctx context.Context, completion func(models.Result)) error {
	f.mu.Lock()
	if f.started {
		f.mu.Unlock()
		return models.ErrSessionAlreadyStarted
	}
	f.started = true
	f.completion = completion
	f.mu.Unlock()

	slog.Info("Flow.Start: session starting", "sessionID", f.id, "kind", f.kind)
	f.deps.Metrics.sessionStarted(f.kind)

	if !f.deps.Connectivity.IsConnected(ctx) {
		slog.Warn("Flow.Start: network unavailable", "sessionID", f.id, "kind", f.kind)
		f.transition(ctx, models.StateFailed)
		f.recordData(ctx, models.DataKeyFailureReason, models.ErrNetworkUnavailable.Error())
		f.finish(ctx, models.ErrorResult(models.ErrorCodeNetwork))
		return models.ErrNetworkUnavailable
	}

	if err := f.sdk.Validate(); err != nil {
		slog.Error("Flow.Start: invalid SDK configuration", "sessionID", f.id, "error", err)
		f.deps.Presenter.PresentAlert(ctx, Alert{
			SessionID: f.id,
			Title:     "Error",
			Message:   models.ErrorCodeInvalidConfiguration.Message(),
		})
		f.transition(ctx, models.StateFailed)
		f.recordData(ctx, models.DataKeyFailureReason, err.Error())
		f.finish(ctx, models.ErrorResult(models.ErrorCodeInvalidConfiguration))
		return fmt.Errorf("%w: %v", models.ErrInvalidConfiguration, err)
	}

	s := newSession(f.id, f.kind, f.sdk.Credentials(f.deps.APIKey), f.sdk.Locale)
	f.mu.Lock()
	f.sess = s
	f.running = true
	f.mu.Unlock()
	f.recordData(ctx, models.DataKeyConfigID, f.sdk.ConfigID)
	go f.run(ctx, s)
	return nil
}

// Stop delivers the stop signal. result is passed verbatim to the completion
// callback. Stop reports false when no session is running or a stop is
// already pending.
func (f *Flow) Stop(result models.Result) bool {
	f.mu.Lock()
	running := f.running
	f.mu.Unlock()
	if !running {
		return false
	}
	select {
	case f.stop <- result:
		return true
	default:
		return false
	}
}

// Wait blocks until the session ends or ctx is done.
func (f *Flow) Wait(ctx context.Context) (models.Result, error) {
	select {
	case <-f.done:
		r, _ := f.Result()
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// stopSignal is what interrupted a pending step: an explicit stop carrying a
// result, or the parent context going away.
type stopSignal struct {
	result models.Result
}

// await runs fetch on its own goroutine so a stop signal can pre-empt it. The
// fetch context is cancelled as soon as await returns.
func await[T any](ctx context.Context, f *Flow, call string, fetch func(context.Context) (T, error)) (T, *stopSignal, error) {
	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		val T
		err error
	}
	ch := make(chan outcome, 1)
	start := time.Now()
	go func() {
		v, err := fetch(fetchCtx)
		ch <- outcome{val: v, err: err}
	}()

	var zero T
	select {
	case o := <-ch:
		f.deps.Metrics.observeFetch(call, start, o.err)
		return o.val, nil, o.err
	case r := <-f.stop:
		slog.Info("Flow: stop signal during fetch", "sessionID", f.id, "call", call)
		return zero, &stopSignal{result: r}, nil
	case <-ctx.Done():
		return zero, &stopSignal{}, nil
	}
}

// run is the session goroutine. Every mutation of s happens here; s is
// cleared by finish before Done is closed.
func (f *Flow) run(ctx context.Context, s *session) {

	f.transition(ctx, models.StateFetchingConfiguration)
	doc, sig, err := await(ctx, f, "configuration", func(ctx context.Context) (*models.ConfigurationDocument, error) {
		return f.deps.Configuration.FetchConfiguration(ctx, s.creds)
	})
	if sig != nil {
		f.end(ctx, sig.result)
		return
	}
	if err == nil && doc == nil {
		err = errors.New("empty configuration document")
	}
	if err != nil {
		slog.Error("Flow: configuration fetch failed", "sessionID", f.id, "kind", f.kind, "error", err)
		result := models.ErrorResult(models.ErrorCodeConfigurationFetch)
		var fe *FetchError
		if errors.As(err, &fe) && fe.Result.HasStatus() {
			result = fe.Result
		}
		f.fail(ctx, result, fmt.Errorf("%w: %v", models.ErrConfigurationFetchFailed, err))
		return
	}

	s.screen = &doc.MainScreen
	widget, ok := s.screen.DisplayWidgetType()
	if !ok {
		slog.Error("Flow: configuration has no display widget", "sessionID", f.id, "kind", f.kind)
		f.fail(ctx, models.ErrorResult(models.ErrorCodeConfigurationFetch),
			fmt.Errorf("%w: no display widget", models.ErrConfigurationFetchFailed))
		return
	}
	s.widget = widget
	f.recordData(ctx, models.DataKeyDisplayWidget, string(widget))

	if f.kind == models.FlowKindUpdateEnrollment {
		f.transition(ctx, models.StateFetchingAccountData)
		raw, sig, err := await(ctx, f, "account_data", func(ctx context.Context) ([]byte, error) {
			return f.deps.AccountData.FetchAccountData(ctx, s.creds)
		})
		if sig != nil {
			f.end(ctx, sig.result)
			return
		}
		var fetched models.FlatDataSet
		if err == nil {
			fetched, err = ProjectAccountRecord(raw)
		}
		if err != nil {
			f.failAccountData(ctx, s, raw, err)
			return
		}
		s.fetched = fetched
		f.recordData(ctx, models.DataKeyFetchedAccount, strconv.Itoa(len(fetched)))
	}

	f.transition(ctx, models.StateMerging)
	if f.stopPending(ctx) {
		return
	}
	projected, err := Project(f.kind, f.config, Target{Widget: widget, OrganizationID: s.screen.OrganizationID()})
	if err != nil {
		f.fail(ctx, models.ErrorResult(models.ErrorCodeInvalidConfiguration), err)
		return
	}
	merged := Merge(projected, s.fetched)

	f.transition(ctx, models.StateFiltered)
	s.data = Filter(merged, s.screen)
	if f.stopPending(ctx) {
		return
	}

	pub := Publication{
		SessionID: f.id,
		Kind:      f.kind,
		Widget:    widget,
		Schema:    s.screen.Widgets[widget],
		Data:      s.data.Clone(),
		Strings:   s.strings(),
	}
	if err := f.deps.Presenter.Present(ctx, pub); err != nil {
		slog.Error("Flow: presenter rejected publication", "sessionID", f.id, "error", err)
		f.fail(ctx, models.ErrorResult(models.ErrorCodeConfigurationFetch), err)
		return
	}
	if f.stopPending(ctx) {
		return
	}
	f.transition(ctx, models.StatePublished)
	f.recordData(ctx, models.DataKeyPublishedKeys, strconv.Itoa(len(s.data)))
	close(f.loaded)
	slog.Info("Flow: configuration loaded", "sessionID", f.id, "kind", f.kind, "widget", widget, "keys", len(s.data))

	select {
	case r := <-f.stop:
		f.end(ctx, r)
	case <-ctx.Done():
		f.end(ctx, nil)
	}
}

// stopPending ends the session when a stop signal arrived, or ctx ended,
// since the last fetch returned. Loaded never fires after a stop.
func (f *Flow) stopPending(ctx context.Context) bool {
	select {
	case r := <-f.stop:
		slog.Info("Flow: stop signal before publication", "sessionID", f.id, "state", f.State())
		f.end(ctx, r)
		return true
	case <-ctx.Done():
		f.end(ctx, nil)
		return true
	default:
		return false
	}
}

// failAccountData routes a failed or unusable account-data response to the
// error-result screen, then ends the session with the account-data failure.
func (f *Flow) failAccountData(ctx context.Context, s *session, raw []byte, err error) {
	slog.Error("Flow: account data unavailable", "sessionID", f.id, "error", err)
	var response models.Result
	var fe *FetchError
	if errors.As(err, &fe) {
		response = fe.Result
	} else if len(raw) > 0 {
		if jsonErr := json.Unmarshal(raw, &response); jsonErr != nil {
			response = nil
		}
	}
	strs := s.strings()
	f.deps.Presenter.PresentResult(ctx, ResultScreen{
		SessionID:   f.id,
		Title:       strs[models.StringKeyErrorTitle],
		Message:     strs[models.StringKeyErrorMessage],
		ButtonTitle: strs[models.StringKeyDoneButton],
		Success:     false,
		Result:      response,
	})
	if !errors.Is(err, models.ErrAccountDataFetchFailed) {
		err = fmt.Errorf("%w: %v", models.ErrAccountDataFetchFailed, err)
	}
	f.fail(ctx, models.ErrorResult(models.ErrorCodeAccountDataFetch), err)
}

func (f *Flow) fail(ctx context.Context, result models.Result, err error) {
	f.transition(ctx, models.StateFailed)
	f.recordData(ctx, models.DataKeyFailureReason, err.Error())
	f.finish(ctx, result)
}

func (f *Flow) end(ctx context.Context, result models.Result) {
	f.transition(ctx, models.StateEnded)
	f.finish(ctx, result)
}

// transition moves the in-memory state and mirrors it to the state manager.
// Persistence failures are logged; they never alter the session outcome.
func (f *Flow) transition(ctx context.Context, to models.StateType) {
	f.mu.Lock()
	from := f.state
	if !models.IsValidTransition(from, to) {
		f.mu.Unlock()
		slog.Error("Flow: illegal transition ignored", "sessionID", f.id, "from", from, "to", to)
		return
	}
	f.state = to
	f.mu.Unlock()
	slog.Debug("Flow: transition", "sessionID", f.id, "kind", f.kind, "from", from, "to", to)

	if f.deps.StateManager == nil {
		return
	}
	if err := f.deps.StateManager.TransitionState(context.WithoutCancel(ctx), f.id, f.kind, from, to); err != nil {
		slog.Warn("Flow: failed to persist transition", "sessionID", f.id, "error", err)
	}
}

func (f *Flow) recordData(ctx context.Context, key models.DataKey, value string) {
	if f.deps.StateManager == nil {
		return
	}
	if err := f.deps.StateManager.SetStateData(context.WithoutCancel(ctx), f.id, f.kind, key, value); err != nil {
		slog.Warn("Flow: failed to persist state data", "sessionID", f.id, "key", key, "error", err)
	}
}

// finish invokes the completion callback once and releases the session.
func (f *Flow) finish(ctx context.Context, result models.Result) {
	f.mu.Lock()
	f.result = result
	f.running = false
	completion := f.completion
	f.completion = nil
	state := f.state
	sess := f.sess
	f.mu.Unlock()

	if sess != nil {
		sess.clear()
	}

	if code := result.StatusCode(); code != "" {
		f.recordData(ctx, models.DataKeyStatusCode, code)
	}
	f.deps.Metrics.sessionFinished(f.kind, state, result)
	slog.Info("Flow: session finished", "sessionID", f.id, "kind", f.kind, "state", state, "statusCode", result.StatusCode())

	if completion != nil {
		completion(result)
	}
	f.doneOnce.Do(func() { close(f.done) })
}
