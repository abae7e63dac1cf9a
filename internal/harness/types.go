package harness

// Trace event types.
const (
	EventInvocation = "invocation"
	EventCompletion = "completion"
)

// TraceEvent is one invocation or completion in a scenario trace.
type TraceEvent struct {
	Type       string      `json:"type"` // "invocation" or "completion"
	Seq        int64       `json:"seq"`
	ActionURI  string      `json:"action_uri,omitempty"`
	Args       interface{} `json:"args,omitempty"`
	OutputCase string      `json:"output_case,omitempty"`
	Result     interface{} `json:"result,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions match.
	Pass bool `json:"pass"`

	// Trace contains all invocations and completions in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddInvocationTrace adds an invocation to the trace.
func (r *Result) AddInvocationTrace(actionURI string, args interface{}, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:      EventInvocation,
		ActionURI: actionURI,
		Args:      args,
		Seq:       seq,
	})
}

// AddCompletionTrace adds a completion to the trace.
func (r *Result) AddCompletionTrace(actionURI, outputCase string, result interface{}, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:       EventCompletion,
		ActionURI:  actionURI,
		OutputCase: outputCase,
		Result:     result,
		Seq:        seq,
	})
}
