package pool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/specialistvlad/computesim/internal/compregistry"
	"github.com/specialistvlad/computesim/internal/computation"
	"github.com/specialistvlad/computesim/internal/ctxlog"
	"github.com/specialistvlad/computesim/internal/dbregistry"
	"github.com/specialistvlad/computesim/internal/docstore"
	"github.com/specialistvlad/computesim/internal/handlers"
	"github.com/specialistvlad/computesim/internal/metrics"
)

// RemoteSite is the site name recorded for remote step documents.
const RemoteSite = "remote"

// Config holds the tunables of a pool.
type Config struct {
	// ConsortiumID names the consortium databases. Defaults to "simulator".
	ConsortiumID string
	// Participants is the number of local sites. Defaults to 1.
	Participants int
	// Iterations bounds runs whose manifest sets no limit. Defaults to 1.
	Iterations int
	// Workers caps how many local steps run at once. Defaults to Participants.
	Workers int
	// StepTimeout bounds each step invocation. Zero means no limit.
	StepTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.ConsortiumID == "" {
		c.ConsortiumID = "simulator"
	}
	if c.Participants <= 0 {
		c.Participants = 1
	}
	if c.Iterations <= 0 {
		c.Iterations = 1
	}
	if c.Workers <= 0 {
		c.Workers = c.Participants
	}
	return c
}

// Pool runs computations from a computation registry.
type Pool struct {
	cfg     Config
	comps   *compregistry.Registry
	db      *dbregistry.Registry
	runners map[computation.StepType]Runner
	sites   []string
}

// New creates a pool over a bootstrapped pair of registries.
func New(cfg Config, comps *compregistry.Registry, db *dbregistry.Registry, h *handlers.Handlers) (*Pool, error) {
	if comps == nil || db == nil {
		return nil, errors.New("pool requires a computation registry and a database registry")
	}
	cfg = cfg.withDefaults()

	sites := make([]string, cfg.Participants)
	for i := range sites {
		sites[i] = fmt.Sprintf("local%d", i)
	}

	return &Pool{
		cfg:   cfg,
		comps: comps,
		db:    db,
		runners: map[computation.StepType]Runner{
			computation.StepCommand:  CommandRunner{},
			computation.StepFunction: FunctionRunner{Handlers: h},
		},
		sites: sites,
	}, nil
}

// SetRunner replaces the runner used for a step type.
func (p *Pool) SetRunner(t computation.StepType, r Runner) {
	p.runners[t] = r
}

// Sites returns the local site names.
func (p *Pool) Sites() []string {
	return append([]string(nil), p.sites...)
}

// Config returns the effective configuration.
func (p *Pool) Config() Config {
	return p.cfg
}

// LocalDB and RemoteDB name the consortium databases.
func (p *Pool) LocalDB() string  { return "local-consortium-" + p.cfg.ConsortiumID }
func (p *Pool) RemoteDB() string { return "remote-consortium-" + p.cfg.ConsortiumID }

// RunDocument is persisted for every step invocation.
type RunDocument struct {
	RunID     string         `json:"run_id"`
	Site      string         `json:"site"`
	Iteration int            `json:"iteration"`
	Input     map[string]any `json:"input"`
	Output    map[string]any `json:"output"`
	Complete  bool           `json:"complete,omitempty"`
}

// Result summarises a finished run.
type Result struct {
	RunID       string                    `json:"run_id"`
	Computation string                    `json:"computation"`
	Iterations  int                       `json:"iterations"`
	Complete    bool                      `json:"complete"`
	Local       map[string]map[string]any `json:"local"`
	Remote      map[string]any            `json:"remote,omitempty"`
}

// Run executes a registered computation version until the remote reports
// completion or the iteration limit is reached.
func (p *Pool) Run(ctx context.Context, name, version string) (*Result, error) {
	def, err := p.comps.Get(ctx, name, version)
	if err != nil {
		return nil, err
	}
	comp := def.Definition
	if comp == nil || comp.Local == nil {
		return nil, fmt.Errorf("%w: %s@%s has no local step", computation.ErrInvalidManifest, name, version)
	}
	if err := checkSteps(comp); err != nil {
		return nil, err
	}

	localDB, err := p.db.Get(ctx, p.LocalDB())
	if err != nil {
		return nil, err
	}
	remoteDB, err := p.db.Get(ctx, p.RemoteDB())
	if err != nil {
		return nil, err
	}

	limit := p.cfg.Iterations
	if comp.Iterations > 0 {
		limit = comp.Iterations
	}

	runID := uuid.NewString()
	ctx, logger := ctxlog.With(ctx, "run_id", runID, "computation", comp.ID())
	logger.Info("🚀 Pipeline run starting.", "sites", len(p.sites), "iterations", limit, "remote", comp.Remote != nil)

	start := comp.Input
	if start == nil {
		start = map[string]any{"start": true}
	}
	inputs := make(map[string]map[string]any, len(p.sites))
	for _, site := range p.sites {
		inputs[site] = start
	}

	result := &Result{RunID: runID, Computation: comp.ID()}
	for iteration := 1; iteration <= limit; iteration++ {
		state := handlers.State{RunID: runID, Iteration: iteration, Iterations: limit}

		outputs, err := p.runLocal(ctx, comp, state, inputs, localDB)
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", iteration, err)
		}
		result.Iterations = iteration
		result.Local = outputs

		if comp.Remote == nil {
			for site, out := range outputs {
				inputs[site] = out
			}
			result.Complete = iteration == limit
			continue
		}

		resp, err := p.runRemote(ctx, comp, state, outputs, remoteDB)
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", iteration, err)
		}
		result.Remote = resp.Output
		if resp.Complete {
			result.Complete = true
			break
		}
		for _, site := range p.sites {
			inputs[site] = resp.Output
		}
	}

	if !result.Complete {
		logger.Warn("Pipeline run reached its iteration limit without the remote completing.", "iterations", limit)
	}
	logger.Info("🏁 Pipeline run finished.", "iterations", result.Iterations, "complete", result.Complete)
	return result, nil
}

func (p *Pool) runLocal(ctx context.Context, comp *computation.Computation, state handlers.State, inputs map[string]map[string]any, store docstore.Store) (map[string]map[string]any, error) {
	results := make([]map[string]any, len(p.sites))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i, site := range p.sites {
		g.Go(func() error {
			siteState := state
			siteState.Site = site
			req := handlers.Request{Input: inputs[site], State: siteState}

			resp, err := p.invoke(ctx, "local", comp, comp.Local, req)
			if err != nil {
				return fmt.Errorf("site %s: %w", site, err)
			}
			results[i] = resp.Output
			return p.record(ctx, store, RunDocument{
				RunID:     state.RunID,
				Site:      site,
				Iteration: state.Iteration,
				Input:     req.Input,
				Output:    resp.Output,
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	outputs := make(map[string]map[string]any, len(p.sites))
	for i, site := range p.sites {
		outputs[site] = results[i]
	}
	return outputs, nil
}

func (p *Pool) runRemote(ctx context.Context, comp *computation.Computation, state handlers.State, outputs map[string]map[string]any, store docstore.Store) (handlers.Response, error) {
	input := make(map[string]any, len(outputs))
	for site, out := range outputs {
		input[site] = out
	}
	state.Site = RemoteSite
	req := handlers.Request{Input: input, State: state}

	resp, err := p.invoke(ctx, "remote", comp, comp.Remote, req)
	if err != nil {
		return handlers.Response{}, fmt.Errorf("remote: %w", err)
	}
	err = p.record(ctx, store, RunDocument{
		RunID:     state.RunID,
		Site:      RemoteSite,
		Iteration: state.Iteration,
		Input:     input,
		Output:    resp.Output,
		Complete:  resp.Complete,
	})
	return resp, err
}

func (p *Pool) invoke(ctx context.Context, side string, comp *computation.Computation, step *computation.Step, req handlers.Request) (handlers.Response, error) {
	runner, ok := p.runners[step.Kind()]
	if !ok {
		return handlers.Response{}, fmt.Errorf("%w: no runner for step type %q", ErrStepFailed, step.Kind())
	}
	if p.cfg.StepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.StepTimeout)
		defer cancel()
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Invoking step.", "side", side, "site", req.State.Site, "iteration", req.State.Iteration)

	started := time.Now()
	resp, err := runner.Run(ctx, comp, step, req)
	metrics.ObserveStep(side, started, err)
	if err != nil {
		logger.Error("Step failed.", "side", side, "site", req.State.Site, "iteration", req.State.Iteration, "error", err)
	}
	return resp, err
}

// checkSteps rejects steps that cannot be executed before any of them runs.
func checkSteps(comp *computation.Computation) error {
	for _, side := range []struct {
		name string
		step *computation.Step
	}{{"local", comp.Local}, {"remote", comp.Remote}} {
		if side.step == nil {
			continue
		}
		if err := side.step.Check(); err != nil {
			return fmt.Errorf("%w: %s %s step: %v", computation.ErrInvalidManifest, comp.ID(), side.name, err)
		}
	}
	return nil
}

func (p *Pool) record(ctx context.Context, store docstore.Store, doc RunDocument) error {
	id := fmt.Sprintf("%s/%03d/%s", doc.RunID, doc.Iteration, doc.Site)
	d, err := docstore.NewDocument(id, doc)
	if err != nil {
		return err
	}
	if _, err := store.Put(ctx, d); err != nil {
		return fmt.Errorf("failed to record %s: %w", id, err)
	}
	return nil
}

// Documents returns the run documents of one run from both consortium
// databases, ordered by iteration with local sites before the remote.
func (p *Pool) Documents(ctx context.Context, runID string) ([]RunDocument, error) {
	var out []RunDocument
	for _, name := range []string{p.LocalDB(), p.RemoteDB()} {
		store, err := p.db.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		docs, err := store.All(ctx)
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			var rd RunDocument
			if err := d.Decode(&rd); err != nil {
				return nil, err
			}
			if rd.RunID == runID {
				out = append(out, rd)
			}
		}
	}
	sortRunDocuments(out)
	return out, nil
}
