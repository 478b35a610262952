// Package engine reconstructs daily portfolio state from a transaction ledger
// and a table of daily prices.
//
// Every function works on in-memory typed slices and returns new slices; the
// package performs no I/O and keeps no state between calls, so running the
// same inputs twice yields identical outputs. Dates are calendar days in UTC.
//
// The pipeline is:
//
//	transactions + prices -> BuildPositions -> Valuate -> Snapshot / ComputeStats
//
// FX rates are price rows whose ticker follows the {FROM}{TO}=X convention.
package engine
