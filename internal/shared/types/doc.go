// Package types provides shared data structures for the playground backend.
//
// This package defines core types used across all backend components,
// ensuring consistent request and result shapes.
//
// Core Types:
//   - Service: Service provider definition
//   - Tool: Service tool specification
//   - Context: Execution context for operations
//   - Result: Standard operation result
//
// Request Types:
//   - RunRequest, CheckRequest: snippet evaluation
//   - ImportRequest: remote catalog import
//   - ExecuteRequest: service tool execution
package types
