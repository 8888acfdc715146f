// Package batch runs a bounded SQL mutation statement repeatedly, one
// transaction per batch, until the statement affects zero rows or an
// advisory remaining-work estimate is drained.
//
// The loop is deliberately single-threaded: one connection, one transaction
// in flight, with an inter-batch delay that sheds load from the target
// database. Failures are never retried — the raw error is surfaced so the
// operator can inspect before re-running a data-mutating job.
//
// The statement itself must bound the rows it touches per call (a LIMIT
// clause or an equivalently bounding WHERE condition). That is a caller
// obligation the loop cannot verify; an unbounded statement never reaches
// the zero-rows termination condition.
package batch
