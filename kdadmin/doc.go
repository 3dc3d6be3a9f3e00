// Package kdadmin exposes maintenance operations for kd virtual tables, such
// as rebuilding and persisting the k-d tree of a shadow table, through the
// kd_admin SQLite virtual table and a plain Go API.
package kdadmin
