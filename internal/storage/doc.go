// Package storage keeps the wallet transition journal.
//
// Every state change of a WalletSession is appended as an Entry. The
// journal backs the dashboard's event log; it is never replayed into a
// session.
//
// Implementations:
//
//   - MemoryJournal: bounded ring buffer, lost on restart
//   - BadgerJournal: Badger v3, ULID keys under the "wj/" prefix, pruned to
//     a maximum entry count
//
// Recorder adapts a Journal to the session's Observer interface.
package storage
