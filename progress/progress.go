// Package progress defines the progress-reporting capability accepted
// by long-running operations (domain parameter generation, multi-block
// encryption, shuffle commitment). Passing a nil Reporter is always
// allowed and changes nothing but the reporting.
package progress

// Reporter receives completion updates for a long-running operation.
// completed counts finished work units, total the overall number of
// units. Implementations must tolerate being called from multiple
// goroutines.
type Reporter interface {
	Report(completed, total int)
}

// Report forwards to r when it is non-nil.
func Report(r Reporter, completed, total int) {
	if r != nil {
		r.Report(completed, total)
	}
}

// Func adapts a plain function to the Reporter interface.
type Func func(completed, total int)

// Report implements Reporter.
func (f Func) Report(completed, total int) {
	f(completed, total)
}
