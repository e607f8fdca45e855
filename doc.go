// Package understory ingests a heterogeneous source tree, produces a
// normalized analysis record per file, and assembles a cross-file import
// dependency graph. It gives tooling a language-agnostic, machine-readable
// snapshot of a codebase plus its intra-repo import topology.
package understory
