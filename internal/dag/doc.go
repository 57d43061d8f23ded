// Package dag provides the dependency graph that sequences simulation runs
// and post-processing stages, and detects invalid (cyclic) pipelines.
package dag
