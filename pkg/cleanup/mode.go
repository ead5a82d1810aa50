package cleanup

// Mode selects how Request satisfies a cleanup request.
type Mode int

const (
	// Deferred arms (or re-arms) the coalescing timer. Zero value, default.
	Deferred Mode = iota
	// Immediate runs the hook synchronously on the caller's goroutine.
	Immediate
	// ImmediateIfPastDue escalates to Immediate only when past due; a
	// never-armed scheduler falls back to Deferred.
	ImmediateIfPastDue
	// ImmediateDeferred dispatches one asynchronous run (if none is in
	// flight) and arms the timer as a backstop.
	ImmediateDeferred
	// ImmediateDeferredIfPastDue escalates to ImmediateDeferred only when
	// past due; a never-armed scheduler falls back to Deferred.
	ImmediateDeferredIfPastDue
)

func (m Mode) String() string {
	switch m {
	case Deferred:
		return "deferred"
	case Immediate:
		return "immediate"
	case ImmediateIfPastDue:
		return "immediate-if-past-due"
	case ImmediateDeferred:
		return "immediate-deferred"
	case ImmediateDeferredIfPastDue:
		return "immediate-deferred-if-past-due"
	default:
		return "unknown"
	}
}
