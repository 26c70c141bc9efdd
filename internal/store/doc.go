// Package store keeps a SQLite journal of scan runs.
//
// Every finished run, resolved or not, appends one row. Rows are ordered
// by seq, an INTEGER PRIMARY KEY assigned on insert, and never by wall
// time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
