// Package models defines the domain records shared by the split calculator,
// the balance ledger and the settlement processor.
//
// # Records
//
//   - Expense / ExpenseShare: an amount fronted by one member and its exact
//     per-participant division. Shares of one expense revision always sum to
//     the expense amount.
//   - Settlement: a payment from one member to another that offsets debt.
//   - Edge: a canonical pairwise balance. For any unordered pair of members in
//     a group at most one edge exists and its amount is strictly positive.
//   - LedgerEvent / Entry: the append-only history the edges are derived from.
//
// # Conventions
//
// Identities are opaque strings supplied by the membership collaborator.
// Amounts are money.Money (integer cents); floating point never appears.
// Timestamps are Unix seconds, event timestamps Unix nanoseconds.
package models
