// Package model defines shared data types used across the live auction client.
//
// Conventions:
//   - Amounts: int64 in whole currency units (no minor units)
//   - Timestamps: time.Time; server end times are absolute, never countdown values
//   - IDs: opaque strings as issued by the backend
package model
