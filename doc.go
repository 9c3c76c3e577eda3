// Package taskflow is a library for orchestrating multi-agent task
// execution: a dependency-ordered workflow engine, a capability-aware task
// router, a three-tier conversational memory store, and a context builder
// that extracts and compresses task context to fit a token budget.
//
// # Packages
//
//   - pkg/workflow    - DAG-based step scheduling, retries, checkpointing
//   - pkg/router      - capability and load-aware agent selection
//   - pkg/memory      - working/consolidated/persistent conversation memory
//   - pkg/contextbuild - keyword extraction, codebase/doc scanning, compression
//   - pkg/executor    - the Agent contract and its registry
//   - pkg/checkpoint  - atomic, file-backed workflow checkpoints
//   - pkg/eventbus    - in-process pub/sub for workflow lifecycle events
//
// See cmd/orchestrator for an example wiring all of them together.
package taskflow
