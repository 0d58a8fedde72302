// Package journal persists view changes and bid attempts to PostgreSQL.
//
// Producers never block: records are queued in memory and a background loop
// writes them in pgx batches, either when a batch fills or on the flush
// interval. The journal is optional and the client runs the same without it.
package journal
