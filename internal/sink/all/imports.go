// Package all wires all built-in sink backends into the sink factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) causes the init functions of each concrete backend to run, which in
// turn register their factories with the sink package.
//
// In other words, importing this package makes the following sink kinds
// available at runtime:
//
//   - "jsonl"    (katalog/internal/sink/jsonl)
//   - "postgres" (katalog/internal/sink/postgres)
//   - "sqlite"   (katalog/internal/sink/sqlite)
//
// Typical usage (in cmd/katalog/main.go or a similar wiring layer):
//
//	import (
//	    _ "katalog/internal/sink/all" // enable all built-in sinks
//
//	    "katalog/internal/sink"
//	)
//
//	dst, err := sink.New(ctx, job.Sink)
//
// This pattern keeps backend-specific wiring in a single, small package and
// allows the rest of the application to depend only on the sink abstraction
// rather than individual backends. A binary that needs only a subset of
// backends can blank-import those backend packages directly instead.
package all

import (
	_ "katalog/internal/sink/jsonl"
	_ "katalog/internal/sink/postgres"
	_ "katalog/internal/sink/sqlite"
)
