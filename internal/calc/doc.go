// Package calc contains the pure calculation engines: split adjustment,
// weighted-average position folding, the currency ledger accountant, the
// XIRR solver, same-day snapshot chaining and time-weighted return linking.
//
// Nothing in this package performs I/O. Every function is a deterministic
// fold over its inputs, so results can be recomputed at any time from the
// persisted transactions and cached market data.
package calc
