// Package models defines the core domain records for tripsplit.
//
// # Records
//
//   - Group: a set of members sharing expenses, found by a 5-digit join code
//   - User: a member profile, created lazily on first sign-in
//   - Expense: one recorded cost, paid by one member, split equally
//   - Transaction: a derived pairwise debt, one per non-paying participant
//
// # Lifecycle
//
// Records are write-once. The only mutation anywhere is the append-only union
// on Group.Members. Expenses and transactions are never edited or deleted, so
// the stored PerPersonAmount stays authoritative for every later summation.
//
// Relationships are ID strings, not pointers. Transactions point back to
// their expense via ExpenseID and to their group via GroupID.
package models
