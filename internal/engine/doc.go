// Package engine holds the pure subscription lifecycle and class capacity computations.
//
// Nothing in this package reads the clock, touches the network or mutates its inputs:
// callers pass "today" explicitly and get plain values back.
package engine
