package runner

// Result holds the outcome of one subprocess invocation. It is consumed by
// the caller immediately and never retained.
type Result struct {
	RunID     string // unique identifier for this invocation
	ExitCode  int    // process exit code
	Stdout    []byte // captured stdout (may be truncated)
	Stderr    []byte // captured stderr (may be truncated)
	Truncated bool   // true if output exceeded the size cap
}

// Failed reports whether the process exited non-zero.
func (r *Result) Failed() bool {
	return r.ExitCode != 0
}
