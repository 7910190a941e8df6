/*
Package eventlog provides I/O operations for collected job event logs.

Event logs pulled from the chain allow replaying jobs offline: for
debugging of the reducer, for fixtures in tests and for analysis of
historical jobs without RPC access.

The package works with logs stored in the file system using human-readable
encoding.
*/
package eventlog
