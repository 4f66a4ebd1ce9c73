// Package sim provides the agent-based event simulation engine for idlesim.
//
// # Reading Guide
//
// Start with these three files to understand the engine:
//   - simulator.go: the day loop, install scheduling, and churn
//   - session.go: per-agent day and session simulation
//   - behavior.go: the stateless decision model (retention, gacha, IAP, battles)
//
// # Architecture
//
// The sim package owns all simulation state and emits Records; output formats
// live in the sub-package:
//   - sim/sink/: JSONL, SQLite, and metadata writers behind the RecordSink
//     interface
//
// # Determinism
//
// One Stream (rng.go) feeds every probabilistic decision in a fixed draw
// order, and all iteration over configured maps goes through sorted keys.
// Given the same config and seed, a run reproduces the same event stream;
// only generated uuids (event ids, session ids) differ between runs.
package sim
