package analyzer

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jward/understory/internal/classify"
	"github.com/jward/understory/internal/entity"
	"github.com/jward/understory/internal/record"
)

// Dispatcher routes a classified file to a registered Analyzer. Lookup
// order: exact extension match, then content-type match, then the default
// analyzer. After a successful analysis it enriches the record with
// entities and derived metrics.
type Dispatcher struct {
	byExt         map[string]Analyzer
	byContentType map[string]Analyzer
	fallback      Analyzer
	extractor     entity.Extractor
}

// NewDispatcher creates an empty dispatcher with the given fallback and
// entity extractor. extractor may be nil to disable enrichment.
func NewDispatcher(fallback Analyzer, extractor entity.Extractor) *Dispatcher {
	return &Dispatcher{
		byExt:         make(map[string]Analyzer),
		byContentType: make(map[string]Analyzer),
		fallback:      fallback,
		extractor:     extractor,
	}
}

// Register binds an extension (".py") to an analyzer.
func (d *Dispatcher) Register(ext string, a Analyzer) {
	d.byExt[ext] = a
}

// RegisterContentType binds a sniffed content type ("text/html") to an
// analyzer, used when no extension matches.
func (d *Dispatcher) RegisterContentType(ct string, a Analyzer) {
	d.byContentType[ct] = a
}

// analyzerFor resolves the analyzer for a file per the lookup order.
func (d *Dispatcher) analyzerFor(path string, cls classify.Classification) Analyzer {
	if a, ok := d.byExt[classify.Ext(path)]; ok {
		return a
	}
	if a, ok := d.byContentType[cls.ContentType]; ok {
		return a
	}
	return d.fallback
}

// Dispatch runs the matching analyzer for the request. A returned error
// means the file is skipped; it is never a run-ending fault. Analyzer
// panics are caught and converted to errors here, at the task boundary.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request, cls classify.Classification) (rec *record.Record, err error) {
	a := d.analyzerFor(req.Path, cls)

	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = fmt.Errorf("analyzer %s panicked on %s: %v", a.Name(), req.Path, r)
		}
	}()

	rec, err = a.Analyze(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("analyzer %s: %w", a.Name(), err)
	}
	if rec == nil {
		return nil, fmt.Errorf("analyzer %s returned no record for %s", a.Name(), req.Path)
	}

	d.enrich(ctx, rec, req)
	return rec, nil
}

// enrich attaches entities, function count, and comment density to the
// record's facts. Extraction failures are logged and the annotation is
// omitted; the record still persists.
func (d *Dispatcher) enrich(ctx context.Context, rec *record.Record, req Request) {
	if d.extractor != nil && rec.Content != nil {
		entities, err := d.extractor.Extract(ctx, *rec.Content)
		if err != nil {
			logrus.WithError(err).WithField("path", req.Path).Warn("entity extraction failed")
		} else {
			if entities == nil {
				entities = []entity.Entity{}
			}
			rec.Analysis["entities"] = entities
		}
	}
	rec.Analysis["function_count"] = rec.Analysis.DefinitionCount("function", "method")
	rec.Analysis["comment_density"] = commentDensity(rec)
}

func commentDensity(rec *record.Record) float64 {
	loc := rec.Metadata.LOC
	if loc <= 0 {
		return 0
	}
	return float64(rec.Analysis.Len("comments")) / float64(loc)
}
