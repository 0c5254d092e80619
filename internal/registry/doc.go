// Package registry holds the authoritative in-memory state for every job the
// daemon tracks and enforces the legal transitions between statuses. All
// mutation happens inside its lock; readers receive clones.
package registry
