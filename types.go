package understory

import (
	"github.com/jward/understory/internal/analyzer"
	"github.com/jward/understory/internal/entity"
	"github.com/jward/understory/internal/record"
	"github.com/jward/understory/internal/resolve"
)

// Public type aliases for internal types used in the Engine API, so
// external consumers never import internal packages.

type Record = record.Record
type Facts = record.Facts
type Metadata = record.Metadata
type Definition = record.Definition
type Call = record.Call

type Analyzer = analyzer.Analyzer
type AnalyzeRequest = analyzer.Request
type Dispatcher = analyzer.Dispatcher
type Diagnostic = analyzer.Diagnostic
type Linter = analyzer.Linter

type Entity = entity.Entity
type EntityExtractor = entity.Extractor

type Graph = resolve.Graph
type GraphNode = resolve.Node
type GraphEdge = resolve.Edge
type ModuleMap = resolve.ModuleMap
type UnresolvedImport = resolve.UnresolvedImport
type ResolverStrategy = resolve.Strategy
