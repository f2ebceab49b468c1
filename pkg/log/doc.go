// Package log captures allocator trace events.
//
// Trace capture is separate from operational logging (slog). It records a
// machine-readable history of what a server did on the bus and in its
// consensus log: frames sent and received, trace points with a numeric
// argument, role changes and internal failures. The alloc-log CLI reads
// these files back.
//
// # Basic Usage
//
//	// Console during development
//	tracer := log.NewSlogAdapter(slog.Default())
//
//	// Binary file in production
//	fl, _ := log.NewFileLogger("/var/log/dynalloc/allocd.dlog")
//
//	// Both
//	tracer := log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fl)
//
// # File Format
//
// Files are a plain sequence of CBOR-encoded events with integer keys,
// conventionally using the .dlog extension.
package log
