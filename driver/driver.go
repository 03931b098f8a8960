// Package driver registers the tinycol database/sql driver and re-exports
// its helpers.
//
//	import _ "github.com/SimonWaldherr/tinycol/driver"
//
//	db, err := sql.Open("tinycol", "mem://inventory?pool_readers=8")
package driver

import (
	"database/sql"

	id "github.com/SimonWaldherr/tinycol/internal/driver"
)

// DriverName is the registered database/sql driver name for tinycol.
const DriverName = id.DriverName

// Open is a convenience wrapper around `sql.Open(DriverName, dsn)`.
func Open(dsn string) (*sql.DB, error) { return sql.Open(DriverName, dsn) }

// Re-export selected symbols from the internal driver package so external
// consumers can use a stable public API while the implementation remains
// hidden under `internal/driver`.
var (
	OpenInMemory = id.OpenInMemory
	Forget       = id.Forget
	Embedded     = id.Embedded
)
