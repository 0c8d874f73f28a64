// Package log records what the client says to and hears from the
// controller.
//
// Capture is separate from operational logging (slog). Each HTTP exchange,
// pushed change, coordination transition or failure becomes an Event that
// can be written to a file and analyzed offline.
//
// # Basic Usage
//
// Capture is enabled by handing the client a Logger:
//
//	// Console only, through the operational logger
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default(), slog.LevelDebug)
//
//	// Binary capture file
//	w, _ := log.OpenCapture("/var/log/rws/panel.rlog")
//	defer w.Close()
//	cfg.ProtocolLogger = w
//
//	// Both
//	cfg.ProtocolLogger = log.Tee(w, log.NewSlogAdapter(slog.Default(), slog.LevelDebug))
//
// # Event Types
//
// Events are captured at multiple layers:
//   - HTTP: request/response exchanges (RequestEvent)
//   - Subscription: pushed value changes (PushEvent)
//   - Coordination: mastership, registry and channel transitions (StateChangeEvent)
//
// Errors at any layer have a dedicated event type.
//
// # File Format
//
// A capture file (extension .rlog) is a header item followed by one CBOR
// map per event, keyed by small integers. OpenFile and NewReader check the
// header and stream events back, optionally filtered. The rws-log command
// views, filters, exports and summarizes captures.
package log
