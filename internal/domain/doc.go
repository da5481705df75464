// Package domain contains the core domain entities and value objects for bulkship.
//
// This package represents the innermost layer of the Clean Architecture. It has
// no dependencies on infrastructure concerns (files, logging, metrics) and
// contains only pure business logic.
//
// # Entities
//
//   - [Command]: A single parsed line of input with a canonical rendering
//   - [Block]: An ordered, immutable group of commands dispatched as one unit
//   - [ReaderMetrics]: Line/command/block counts of one connection's parser
//   - [WorkerMetrics]: Counters owned by a single pool worker
//
// # Design Principles
//
// Domain entities are:
//   - Immutable after construction
//   - Free of infrastructure dependencies
//   - Safe to share between goroutines once built
package domain
