// Package storage provides JSON-based persistence for competition snapshots.
//
// Each refresh of a competition stores its extracted leaderboard and
// selected winners in snapshot_COMPID.json under the data directory. The
// default storage location is ~/.botgc-results/.
package storage
