// Package cmd implements the command-line interface of sKV. It provides a
// hierarchical command structure with operations for running the server and
// interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Starts and configures the sKV server
//   - kv: Client commands for key-value operations (put, get, delete) and a load generator (perf)
//   - cert: Generates a self-signed certificate for the server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See skv -help for a list of all commands.
package cmd
