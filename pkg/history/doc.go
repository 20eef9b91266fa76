/*
Package history implements the durable, append-only interaction log on top of
database/sql.

A Store owns a connection pool for one of the supported dialects (SQLite via
modernc.org/sqlite, PostgreSQL via pgx) and bootstraps the history table on
startup. The pool sits behind an atomic pointer: a background monitor probes it
on a fixed interval and, when a probe cannot acquire a connection, builds a
fresh pool from the same DSN, re-runs the schema bootstrap and swaps it in.
While a replacement is in progress every operation fails fast with
domain.ErrUnavailable instead of waiting on a broken pool.

Every operation checks out a dedicated *sql.Conn and returns it with defer, so
no connection outlives the call that acquired it.
*/
package history
