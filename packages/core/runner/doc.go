// Package runner executes a discovered suite tree and produces its result.
//
// It provides:
//   - Package setup and teardown around every module below a package
//   - Sequential modules in order, parallel modules on a bounded pool
//   - ParallelTest modules with a worker lane and a task lane
//   - Stop-on-fail that cancels in-flight coroutine tests
//   - Reporter callbacks for every state transition
//
// Teardowns run even after a stop. The suite result is always sealed and
// reported, and the last-failed store is written when configured.
package runner
