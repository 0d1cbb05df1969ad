// Package perf provides session-scoped performance counters for the
// numeric kernels.
//
// Kernels never touch global state. Every instrumented call receives a
// [*Counters] that belongs to exactly one measurement session:
//
//	mon := perf.NewMonitor()
//	sess, err := mon.Begin()
//	if err != nil {
//	    // another session is still open: perf.ErrSessionBusy
//	}
//	kernel.Compute(ps, kernel.ModeNearest, strat, sess.Counters())
//	m, _ := mon.End(sess)
//	fmt.Println(m.VectorUtilization)
//
// # Thread Safety
//
// Counters are NOT thread-safe. A [Monitor] admits at most one active
// session at a time; callers running concurrent measurements use one
// Monitor each.
package perf
