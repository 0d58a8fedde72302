// Package database opens the PostgreSQL pool behind the optional journal and
// owns the journal schema.
package database
