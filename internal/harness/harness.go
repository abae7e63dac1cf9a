package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/meimodev/activid-web-sub001/internal/guest"
	"github.com/meimodev/activid-web-sub001/internal/selector"
	"github.com/meimodev/activid-web-sub001/internal/store"
	"github.com/meimodev/activid-web-sub001/internal/testutil"
	"github.com/meimodev/activid-web-sub001/internal/wish"
)

// Output cases produced by the harness besides wish error codes.
const (
	CaseCreated       = string(wish.OutcomeCreated)
	CaseAlreadyPosted = string(wish.OutcomeAlreadyPosted)
	CaseFound         = "found"
	CaseNotFound      = "not_found"
	CaseOK            = "ok"
	CaseBurst         = "burst"
)

// Harness is the scenario execution engine.
// It runs scenarios against a real wish.Service with a deterministic clock
// and anonymous ID sequence.
type Harness struct {
	repo       wish.Repository
	service    *wish.Service
	invitation string
	logger     *slog.Logger

	seq int64
}

// Option configures a scenario run.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger routes service and harness logs to l. Default: discarded.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Execution flow:
//  1. Create fresh in-memory database with a step clock
//  2. Execute setup steps
//  3. Execute flow steps with expect validation
//  4. Evaluate assertions against the trace and the store
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	st, err := store.Open(":memory:", store.WithClock(testutil.NewStepClock(time.Time{}, time.Second)))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		repo: st,
		service: wish.NewService(st,
			wish.WithIDGenerator(testutil.NewSequenceGenerator("anon")),
			wish.WithLogger(o.logger),
		),
		invitation: scenario.Invitation,
		logger:     o.logger,
	}

	ctx := context.Background()
	result := NewResult()

	if err := h.executeSetup(ctx, scenario.Setup, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	actx := &AssertionContext{
		Ctx:        ctx,
		Repo:       st,
		Service:    h.service,
		Invitation: scenario.Invitation,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}
	return result, nil
}

func (h *Harness) nextSeq() int64 {
	h.seq++
	return h.seq
}

// executeSetup runs all setup steps sequentially. A setup step that does not
// succeed aborts the run.
func (h *Harness) executeSetup(ctx context.Context, setup []ActionStep, result *Result) error {
	for i, step := range setup {
		result.AddInvocationTrace(step.Action, step.Args, h.nextSeq())

		outputCase, out, err := h.invoke(ctx, step.Action, step.Args)
		if err != nil {
			return fmt.Errorf("setup step %d: %w", i, err)
		}
		result.AddCompletionTrace(step.Action, outputCase, out, h.nextSeq())

		if !successCase(outputCase) {
			return fmt.Errorf("setup step %d: %s completed with %s", i, step.Action, outputCase)
		}
		h.logger.Info("setup step completed", "step", i, "action", step.Action, "output_case", outputCase)
	}
	return nil
}

// executeFlow runs the flow steps and checks each expect clause against the
// actual completion.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		result.AddInvocationTrace(step.Invoke, step.Args, h.nextSeq())

		var (
			outputCase string
			out        interface{}
			err        error
		)
		if step.Concurrent > 1 {
			outputCase, out, err = h.burst(ctx, step.Args, step.Concurrent)
		} else {
			outputCase, out, err = h.invoke(ctx, step.Invoke, step.Args)
		}
		if err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}
		result.AddCompletionTrace(step.Invoke, outputCase, out, h.nextSeq())

		if step.Expect != nil {
			if outputCase != step.Expect.Case {
				result.AddError(fmt.Sprintf("flow[%d] %s: expected case %q, got %q",
					i, step.Invoke, step.Expect.Case, outputCase))
			} else if !matchArgs(out, step.Expect.Result) {
				result.AddError(fmt.Sprintf("flow[%d] %s: expected result %v, got %v",
					i, step.Invoke, step.Expect.Result, out))
			}
		}

		h.logger.Info("flow step completed",
			"step", i,
			"action", step.Invoke,
			"output_case", outputCase,
		)
	}
	return nil
}

// invoke dispatches one action. Domain failures come back as an output case
// (the wish error code); a returned error means the step itself is malformed.
func (h *Harness) invoke(ctx context.Context, action string, args map[string]interface{}) (string, interface{}, error) {
	switch action {
	case ActionSubmit, ActionSubmitAnonymous:
		d, err := h.draft(action, args)
		if err != nil {
			return "", nil, err
		}
		var res *wish.Result
		if action == ActionSubmit {
			res, err = h.service.Submit(ctx, d)
		} else {
			res, err = h.service.SubmitAnonymous(ctx, d)
		}
		if err != nil {
			return errorCase(err), nil, nil
		}
		return string(res.Outcome), wishMap(res.Wish), nil

	case ActionFind:
		name, err := stringArg(args, "guest")
		if err != nil {
			return "", nil, err
		}
		w, err := h.service.Find(ctx, h.invitation, name)
		if err != nil {
			return errorCase(err), nil, nil
		}
		if w == nil {
			return CaseNotFound, nil, nil
		}
		return CaseFound, wishMap(w), nil

	case ActionList:
		dedupe, err := boolArg(args, "dedupe")
		if err != nil {
			return "", nil, err
		}
		wishes, err := h.repo.ListByInvitation(ctx, h.invitation)
		if err != nil {
			return errorCase(err), nil, nil
		}
		wish.Sort(wishes)
		if dedupe {
			wishes = wish.Dedupe(wishes)
		}
		names := make([]interface{}, len(wishes))
		for i, w := range wishes {
			names[i] = w.Name
		}
		return CaseOK, map[string]interface{}{"count": len(wishes), "names": names}, nil

	case ActionNameKey:
		name, err := stringArg(args, "name")
		if err != nil {
			return "", nil, err
		}
		return CaseOK, map[string]interface{}{"key": guest.NameKey(name)}, nil

	case ActionPick:
		items, err := listArg(args, "items")
		if err != nil {
			return "", nil, err
		}
		seed, err := stringArg(args, "seed")
		if err != nil {
			return "", nil, err
		}
		count, err := intArg(args, "count")
		if err != nil {
			return "", nil, err
		}
		return CaseOK, map[string]interface{}{"items": selector.Pick(items, seed, count)}, nil
	}
	return "", nil, fmt.Errorf("unknown action %q", action)
}

// burst runs n identical Wish.submit calls at once and reports how many
// ended in each output case.
func (h *Harness) burst(ctx context.Context, args map[string]interface{}, n int) (string, interface{}, error) {
	d, err := h.draft(ActionSubmit, args)
	if err != nil {
		return "", nil, err
	}

	var (
		mu     sync.Mutex
		counts = make(map[string]int)
		wg     sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outputCase := ""
			res, err := h.service.Submit(ctx, d)
			if err != nil {
				outputCase = errorCase(err)
			} else {
				outputCase = string(res.Outcome)
			}
			mu.Lock()
			counts[outputCase]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	out := make(map[string]interface{}, len(counts))
	for k, v := range counts {
		out[k] = v
	}
	return CaseBurst, out, nil
}

func (h *Harness) draft(action string, args map[string]interface{}) (wish.Draft, error) {
	nameField := "guest"
	if action == ActionSubmitAnonymous {
		nameField = "name"
	}
	name, err := stringArg(args, nameField)
	if err != nil {
		return wish.Draft{}, err
	}
	attendance, err := stringArg(args, "attendance")
	if err != nil {
		return wish.Draft{}, err
	}
	message, err := stringArg(args, "message")
	if err != nil {
		return wish.Draft{}, err
	}
	return wish.Draft{
		InvitationID: h.invitation,
		Name:         name,
		Attendance:   wish.Attendance(attendance),
		Message:      message,
	}, nil
}

// wishMap renders a stored wish with YAML-comparable value types.
func wishMap(w *wish.Wish) map[string]interface{} {
	return map[string]interface{}{
		"id":         w.ID,
		"name":       w.Name,
		"attendance": string(w.Attendance),
		"message":    w.Message,
		"created_at": w.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func errorCase(err error) string {
	if code := wish.CodeOf(err); code != "" {
		return string(code)
	}
	return "ERROR"
}

func successCase(c string) bool {
	switch c {
	case CaseCreated, CaseAlreadyPosted, CaseFound, CaseNotFound, CaseOK, CaseBurst:
		return true
	}
	return false
}

// Argument accessors. A missing key yields the zero value.

func stringArg(args map[string]interface{}, key string) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("arg %q: expected string, got %T", key, v)
	}
	return s, nil
}

func boolArg(args map[string]interface{}, key string) (bool, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("arg %q: expected bool, got %T", key, v)
	}
	return b, nil
}

func intArg(args map[string]interface{}, key string) (int, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return 0, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	}
	return 0, fmt.Errorf("arg %q: expected int, got %T", key, v)
}

func listArg(args map[string]interface{}, key string) ([]interface{}, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return []interface{}{}, nil
	}
	l, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("arg %q: expected list, got %T", key, v)
	}
	return l, nil
}

// sortedKeys returns the keys of m in ascending order.
func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
