// Package benchmark holds performance benchmarks for the integrity gate and
// the storage around it.
//
// Run benchmarks with:
//
//	go test -bench=. -benchmem ./internal/tests/benchmark/...
//
// Scale the ledger or state sizes with -bench filters, for example:
//
//	go test -bench=BenchmarkVerifyProvenance/ledger_100000 -benchtime=5s ./internal/tests/benchmark/...
//
// Compare runs with benchstat old.txt new.txt.
package benchmark
