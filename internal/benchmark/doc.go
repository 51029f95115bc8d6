// SPDX-License-Identifier: MPL-2.0

// Package benchmark holds benchmarks for the load hot paths, used to
// produce PGO profiles:
//   - document parsing in every supported format
//   - manifest parsing and mod discovery
//   - merging, binding, validation and checksums
//   - the end-to-end load, cold and with a warm parse cache
//
// To generate a profile, run:
//
//	go test -run=^$ -bench=. -cpuprofile=default.pgo ./internal/benchmark
package benchmark
