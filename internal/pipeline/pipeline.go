// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/ironhull/modkit/internal/control"
	"github.com/ironhull/modkit/internal/docload"
	"github.com/ironhull/modkit/internal/modreg"
	"github.com/ironhull/modkit/internal/specmerge"
	"github.com/ironhull/modkit/pkg/content"
	"github.com/ironhull/modkit/pkg/walker"
)

var (
	// ErrLoadFailed is wrapped by every FatalLoadError.
	ErrLoadFailed = errors.New("content load failed")
	// ErrMissingDocument is returned when a required document is absent
	// after merging and validation.
	ErrMissingDocument = errors.New("required document missing")
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("pipeline already started")
	// ErrNotDone is returned by Result before the pipeline reaches a
	// terminal stage.
	ErrNotDone = errors.New("pipeline still running")
)

type (
	// Options configures a Pipeline.
	Options struct {
		// ModsRoot is the directory holding one folder per mod.
		ModsRoot string
		// ListPath is the persisted mod list. Defaults to <ModsRoot>/modlist.cue.
		ListPath string
		// Catalog lists the categories to load. Defaults to content.DefaultCatalog().
		Catalog content.Catalog
		// Level selects the fields contributing to checksums.
		Level walker.Level
		// Workers bounds parallel parsing. Defaults to GOMAXPROCS.
		Workers int
		// Cache, when set, lets repeated loads skip unchanged documents.
		Cache *docload.Cache
		// Logger defaults to a stderr logger with the "pipeline" prefix.
		Logger *log.Logger
		// OnProgress is called after every progress update. It may be called
		// from several goroutines at once and must not block.
		OnProgress func(Progress)
	}

	// Progress is a snapshot of the pipeline state.
	Progress struct {
		Stage       Stage
		Completed   int
		Total       int
		Description string
	}

	// Result is the output of a finished load.
	Result struct {
		Stage    Stage
		Database *Database
		// Checksum is the aggregate checksum; zero unless Stage is Ready.
		Checksum uint32
		Level    walker.Level
		Mods     []modreg.Descriptor
		// Controls holds the compiled control groups.
		Controls *control.Set
		// Errors holds the non-fatal unit failures that were skipped.
		Errors []error
		// ValidationErrors holds every field-level validation failure.
		ValidationErrors []walker.ValidationError
		Diagnostics      []modreg.Diagnostic
		// Fatal is the first fatal error when Stage is Faulted.
		Fatal error
	}

	// Pipeline loads the content of a mods root. A pipeline is single-use:
	// once it reaches Ready or Faulted, create a new one to reload.
	Pipeline struct {
		opts    Options
		logger  *log.Logger
		reg     *walker.Registry
		walker  *walker.Walker
		mods    *modreg.Registry
		loader  *docload.Loader
		started atomic.Bool
		done    chan struct{}

		mu       sync.Mutex
		progress Progress
		result   *Result
	}

	// FatalLoadError is an error that aborted the load.
	FatalLoadError struct {
		Stage Stage
		Err   error
	}

	// MissingDocumentError names a required document that did not survive
	// loading.
	MissingDocumentError struct {
		Category string
		ID       string
		// Invalid is set when the document was merged and bound but failed
		// validation.
		Invalid bool
	}
)

// Error implements the error interface for FatalLoadError.
func (e *FatalLoadError) Error() string {
	return fmt.Sprintf("load failed during %s: %v", e.Stage, e.Err)
}

// Unwrap returns ErrLoadFailed and the cause.
func (e *FatalLoadError) Unwrap() []error { return []error{ErrLoadFailed, e.Err} }

// Error implements the error interface for MissingDocumentError.
func (e *MissingDocumentError) Error() string {
	if e.Invalid {
		return fmt.Sprintf("required %s document %q failed validation", e.Category, e.ID)
	}
	return fmt.Sprintf("required %s document %q is not provided by any enabled mod", e.Category, e.ID)
}

// Unwrap returns ErrMissingDocument for errors.Is() compatibility.
func (e *MissingDocumentError) Unwrap() error { return ErrMissingDocument }

// New creates a pipeline. The type registry and document loader are owned
// by the pipeline and discarded with it.
func New(opts Options) (*Pipeline, error) {
	if opts.ModsRoot == "" {
		return nil, errors.New("mods root is required")
	}
	if err := opts.Level.Validate(); err != nil {
		return nil, err
	}
	if opts.Catalog == nil {
		opts.Catalog = content.DefaultCatalog()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "pipeline"})
	}
	reg := walker.NewRegistry()
	return &Pipeline{
		opts:   opts,
		logger: logger,
		reg:    reg,
		walker: walker.New(reg),
		mods:   modreg.New(modreg.Config{ModsRoot: opts.ModsRoot, ListPath: opts.ListPath, Logger: logger.WithPrefix("modreg")}),
		loader: docload.New(docload.Config{Workers: opts.Workers, Cache: opts.Cache, Logger: logger.WithPrefix("docload")}),
		done:   make(chan struct{}),
	}, nil
}

// NewDiscard creates a pipeline whose logger discards output.
func NewDiscard(opts Options) (*Pipeline, error) {
	opts.Logger = log.New(io.Discard)
	return New(opts)
}

// Start runs the stages on a background goroutine and returns immediately.
// ctx is checked between stages and while parsing.
func (p *Pipeline) Start(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	go p.run(ctx)
	return nil
}

// Run starts the pipeline and waits for it to finish.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if err := p.Start(ctx); err != nil {
		return nil, err
	}
	<-p.done
	return p.Result()
}

// Done is closed when the pipeline reaches Ready or Faulted.
func (p *Pipeline) Done() <-chan struct{} { return p.done }

// Progress returns a snapshot of the current stage and unit counts.
func (p *Pipeline) Progress() Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.progress
}

// Result returns the outcome of a finished load. When the load faulted the
// result is still returned, with the fatal error.
func (p *Pipeline) Result() (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.result == nil {
		return nil, ErrNotDone
	}
	return p.result, p.result.Fatal
}

// Walker returns the walker whose registry holds the loaded categories.
func (p *Pipeline) Walker() *walker.Walker { return p.walker }

func (p *Pipeline) publish(stage Stage, completed, total int, desc string) {
	p.mu.Lock()
	p.progress = Progress{Stage: stage, Completed: completed, Total: total, Description: desc}
	snap := p.progress
	p.mu.Unlock()

	if p.opts.OnProgress != nil {
		p.opts.OnProgress(snap)
	}
}

func (p *Pipeline) counter(stage Stage, desc string) docload.ProgressFunc {
	return func(completed, total int) { p.publish(stage, completed, total, desc) }
}

// finish stores the result and closes Done. Both terminal stages end here.
func (p *Pipeline) finish(res *Result) {
	p.mu.Lock()
	p.result = res
	p.progress = Progress{Stage: res.Stage, Completed: p.progress.Total, Total: p.progress.Total}
	snap := p.progress
	p.mu.Unlock()

	if res.Fatal != nil {
		p.logger.Error("load faulted", "err", res.Fatal, "validation_errors", len(res.ValidationErrors))
	} else {
		p.logger.Info("load ready", "instances", res.Database.Len(), "checksum", fmt.Sprintf("0x%08x", res.Checksum))
	}
	if p.opts.OnProgress != nil {
		p.opts.OnProgress(snap)
	}
	close(p.done)
}

func (p *Pipeline) fault(res *Result, stage Stage, err error) {
	res.Stage = StageFaulted
	res.Checksum = 0
	res.Fatal = &FatalLoadError{Stage: stage, Err: err}
	p.finish(res)
}

func (p *Pipeline) run(ctx context.Context) {
	res := &Result{Level: p.opts.Level, Database: newDatabase(p.opts.Catalog.Names())}

	p.publish(StageLoadModList, 0, 1, p.opts.ModsRoot)
	if err := p.opts.Catalog.Register(p.reg); err != nil {
		p.fault(res, StageLoadModList, err)
		return
	}
	disc, err := p.mods.Discover()
	if err != nil {
		p.fault(res, StageLoadModList, err)
		return
	}
	res.Mods = disc.Mods
	res.Diagnostics = disc.Diagnostics
	mods := disc.Loadable()
	p.publish(StageLoadModList, 1, 1, fmt.Sprintf("%d of %d mods enabled", len(mods), len(disc.Mods)))
	if err := ctx.Err(); err != nil {
		p.fault(res, StageLoadModList, err)
		return
	}

	p.publish(StageLoadDocuments, 0, 0, "")
	raws, errs := p.loader.Read(mods, p.opts.Catalog.Names(), p.counter(StageLoadDocuments, "reading documents"))
	p.skip(res, errs)
	if err := ctx.Err(); err != nil {
		p.fault(res, StageLoadDocuments, err)
		return
	}

	p.publish(StageParseDocuments, 0, len(raws), "")
	docs, errs := p.loader.Parse(ctx, raws, p.counter(StageParseDocuments, "parsing documents"))
	if err := ctx.Err(); err != nil {
		p.fault(res, StageParseDocuments, err)
		return
	}
	p.skip(res, errs)

	if err := p.validate(res, docs); err != nil {
		p.fault(res, StageValidateDocuments, err)
		return
	}
	res.Stage = StageReady
	res.Checksum = res.Database.Checksum()
	p.finish(res)
}

func (p *Pipeline) skip(res *Result, errs []error) {
	for _, err := range errs {
		p.logger.Warn("skipping", "err", err)
	}
	res.Errors = append(res.Errors, errs...)
}

type bound struct {
	cat  content.Category
	item specmerge.Merged
	val  any
}

// validate merges, binds, validates and checksums every category. The whole
// pass always completes so that every validation error is reported, even
// when a fatal error was found on the way; the first fatal error is returned.
func (p *Pipeline) validate(res *Result, docs []docload.Document) error {
	byCat := make(map[string][]docload.Document)
	for _, d := range docs {
		byCat[d.Category] = append(byCat[d.Category], d)
	}

	var (
		fatal []error
		items []bound
		ids   = make(idSet)
	)
	for _, cat := range p.opts.Catalog {
		out := specmerge.Merge(cat.Name, cat.IDKey(p.reg), byCat[cat.Name])
		fatal = append(fatal, out.Fatal...)
		p.skip(res, out.Errors)
		for _, it := range out.Items {
			val, err := content.Bind(cat, it.ID, it.Tree)
			if err != nil {
				p.skip(res, []error{err})
				continue
			}
			ids.add(cat.Name, it.ID)
			items = append(items, bound{cat: cat, item: it, val: val})
		}
	}

	groups := make(map[string]*content.ControlGroupSpec)
	for i, b := range items {
		p.publish(StageValidateDocuments, i, len(items), b.cat.Name+"/"+b.item.ID)

		vc := p.walker.NewValidationContext(ids)
		if err := p.walker.Validate(b.val, walker.NewPath(b.cat.Name, b.item.ID), vc); err != nil {
			fatal = append(fatal, err)
			continue
		}
		if vc.Len() > 0 {
			res.ValidationErrors = append(res.ValidationErrors, vc.Errors()...)
			p.logger.Warn("invalid content", "category", b.cat.Name, "id", b.item.ID, "errors", vc.Len())
			continue
		}
		sum, err := p.walker.Checksum(b.val, p.opts.Level)
		if err != nil {
			fatal = append(fatal, err)
			continue
		}
		res.Database.add(&Instance{
			Category: b.cat.Name,
			ID:       b.item.ID,
			Sources:  b.item.Sources,
			Value:    b.val,
			Checksum: sum,
		})
		if g, ok := b.val.(*content.ControlGroupSpec); ok {
			groups[b.item.ID] = g
		}
	}
	p.publish(StageValidateDocuments, len(items), len(items), "")

	set, errs := control.CompileSet(groups)
	res.Controls = set
	p.skip(res, errs)

	for _, cat := range p.opts.Catalog {
		for _, id := range cat.Required {
			if !res.Database.Known(cat.Name, id) {
				fatal = append(fatal, &MissingDocumentError{Category: cat.Name, ID: id, Invalid: ids.Known(cat.Name, id)})
			}
		}
	}
	if len(fatal) > 0 {
		return fatal[0]
	}
	return nil
}
