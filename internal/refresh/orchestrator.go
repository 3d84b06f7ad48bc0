package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openquant/screener/internal/contracts"
	"github.com/openquant/screener/internal/formulas"
	"github.com/openquant/screener/internal/indicators"
	"github.com/openquant/screener/internal/screener"
	"github.com/openquant/screener/internal/store"
	"github.com/openquant/screener/pkg/logger"
)

// Notifier receives a report after a refresh reaches a terminal state.
type Notifier interface {
	RefreshFinished(ctx context.Context, snap Snapshot, top []contracts.CombinedScore) error
}

// Deps are the collaborators the orchestrator drives.
type Deps struct {
	Universe     contracts.UniverseSource
	Prices       contracts.PriceSource
	Fundamentals contracts.FundamentalsSource

	PriceRepo        contracts.PriceRepository
	FundamentalsRepo contracts.FundamentalsRepository
	IndicatorRepo    contracts.IndicatorRepository
	ScoreRepo        contracts.ScoreRepository
	Freshness        contracts.Freshness

	Engine   *indicators.Engine
	Formulas *formulas.Engine
	Scorer   *screener.Scorer

	// Optional hooks.
	Notifier        Notifier
	InvalidateCache func(ctx context.Context) error
}

// Options tune one refresh run.
type Options struct {
	Concurrency  int
	TTL          store.TTLPolicy
	BackfillDays int
	Screen       screener.Params
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = 10
	}
	if o.TTL.Prices == 0 && o.TTL.Fundamentals == 0 {
		o.TTL = store.DefaultTTLPolicy()
	}
	if o.BackfillDays <= 0 {
		o.BackfillDays = 730
	}
	return o
}

// Orchestrator drives the full refresh pipeline: resolve universe,
// fetch stale artifacts, recompute indicators and quality, rebuild
// the combined ranking. Single-flight: at most one run at a time,
// enforced by the job record's trigger guard.
type Orchestrator struct {
	deps Deps
	opts Options
	job  *Job
	log  *logger.Logger

	now func() time.Time
}

func NewOrchestrator(deps Deps, opts Options, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		deps: deps,
		opts: opts.withDefaults(),
		job:  NewJob(),
		log:  log,
		now:  time.Now,
	}
}

// Job exposes the singleton job record for status readers.
func (o *Orchestrator) Job() *Job {
	return o.job
}

// Trigger starts a refresh on a background context and returns
// whether it was accepted. A refresh already in flight makes this a
// no-op returning false.
func (o *Orchestrator) Trigger() bool {
	if !o.job.TryStart(o.now()) {
		return false
	}

	go func() {
		// Detached from the caller: a running refresh is not tied to
		// the request that started it.
		o.run(context.Background())
	}()
	return true
}

// RunBlocking runs one refresh synchronously (CLI and scheduler path).
func (o *Orchestrator) RunBlocking(ctx context.Context) (Snapshot, error) {
	if !o.job.TryStart(o.now()) {
		return o.job.Status(), fmt.Errorf("refresh already running")
	}
	o.run(ctx)
	return o.job.Status(), nil
}

// Status returns the current job snapshot. Pure read.
func (o *Orchestrator) Status() Snapshot {
	return o.job.Status()
}

// Reset clears a terminal job back to idle. Rejected while running.
func (o *Orchestrator) Reset() (Snapshot, bool) {
	ok := o.job.Reset()
	return o.job.Status(), ok
}

func (o *Orchestrator) run(ctx context.Context) {
	start := o.now()

	listings, err := o.deps.Universe.Listings(ctx)
	if err != nil {
		o.fail(ctx, fmt.Errorf("resolve universe: %w", err))
		return
	}
	if len(listings) == 0 {
		o.fail(ctx, fmt.Errorf("universe resolved to zero symbols"))
		return
	}
	o.job.SetTotal(len(listings))
	o.log.WithFields(map[string]interface{}{
		"symbols":     len(listings),
		"concurrency": o.opts.Concurrency,
	}).Info("refresh started")

	fetched := o.fetchStage(ctx, listings)
	if len(fetched) == 0 {
		o.fail(ctx, fmt.Errorf("all %d symbols failed to fetch", len(listings)))
		return
	}

	o.job.BeginProcessing()
	o.processStage(ctx, fetched)

	// Ranking is a barrier: it reads the full persisted set, including
	// rows carried over from earlier runs for symbols skipped here.
	if err := o.rankStage(ctx, listings); err != nil {
		o.fail(ctx, err)
		return
	}

	if o.deps.InvalidateCache != nil {
		if err := o.deps.InvalidateCache(ctx); err != nil {
			o.log.WithError(err).Warn("cache invalidation failed")
		}
	}

	o.job.Complete(o.now())
	snap := o.job.Status()
	o.log.WithFields(map[string]interface{}{
		"duration": o.now().Sub(start).String(),
		"fetched":  snap.Progress.Fetched,
		"skipped":  len(snap.Progress.Skipped),
	}).Info("refresh completed")

	o.notify(ctx, snap)
}

// fetchStage refreshes stale artifacts for every listing on a bounded
// worker pool and returns the listings whose data is usable for the
// processing stage.
func (o *Orchestrator) fetchStage(ctx context.Context, listings []contracts.Listing) []contracts.Listing {
	var (
		mu  sync.Mutex
		ok  []contracts.Listing
		wg  sync.WaitGroup
		sem = make(chan struct{}, o.opts.Concurrency)
	)

	for _, l := range listings {
		wg.Add(1)
		sem <- struct{}{}
		go func(l contracts.Listing) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := o.fetchSymbol(ctx, l.Symbol); err != nil {
				o.log.WithError(err).WithField("symbol", l.Symbol).Warn("symbol skipped")
				o.job.AddSkip(l.Symbol)
				return
			}
			o.job.MarkFetched()
			mu.Lock()
			ok = append(ok, l)
			mu.Unlock()
		}(l)
	}
	wg.Wait()
	return ok
}

// fetchSymbol refreshes both artifact kinds for one symbol, honoring
// per-kind TTLs. Fresh artifacts are not refetched.
func (o *Orchestrator) fetchSymbol(ctx context.Context, symbol string) error {
	now := o.now()

	fetchedAt, _, err := o.deps.Freshness.FetchedAt(ctx, symbol, store.KindPrices)
	if err != nil {
		return fmt.Errorf("price freshness: %w", err)
	}
	if !o.opts.TTL.IsFresh(store.KindPrices, fetchedAt, now) {
		if err := o.fetchPrices(ctx, symbol, now); err != nil {
			return fmt.Errorf("prices: %w", err)
		}
	}

	fetchedAt, _, err = o.deps.Freshness.FetchedAt(ctx, symbol, store.KindFundamentals)
	if err != nil {
		return fmt.Errorf("fundamentals freshness: %w", err)
	}
	if !o.opts.TTL.IsFresh(store.KindFundamentals, fetchedAt, now) {
		if err := o.fetchFundamentals(ctx, symbol, now); err != nil {
			return fmt.Errorf("fundamentals: %w", err)
		}
	}
	return nil
}

// fetchPrices pulls bars incrementally from the day after the last
// stored bar, or a full backfill window for new symbols.
func (o *Orchestrator) fetchPrices(ctx context.Context, symbol string, now time.Time) error {
	latest, err := o.deps.PriceRepo.LatestDate(ctx, symbol)
	if err != nil {
		return err
	}

	from := now.AddDate(0, 0, -o.opts.BackfillDays)
	if !latest.IsZero() {
		from = latest.AddDate(0, 0, 1)
	}
	if !from.Before(now.Truncate(24 * time.Hour).Add(24 * time.Hour)) {
		// Already have today's bar; just refresh the timestamp.
		return o.deps.Freshness.Touch(ctx, symbol, store.KindPrices, now)
	}

	bars, err := o.deps.Prices.FetchPrices(ctx, symbol, from, now)
	if err != nil {
		return err
	}
	if _, err := o.deps.PriceRepo.SaveBars(ctx, bars); err != nil {
		return err
	}
	return o.deps.Freshness.Touch(ctx, symbol, store.KindPrices, now)
}

func (o *Orchestrator) fetchFundamentals(ctx context.Context, symbol string, now time.Time) error {
	snap, err := o.deps.Fundamentals.FetchFundamentals(ctx, symbol)
	if err != nil {
		return err
	}
	if err := o.deps.FundamentalsRepo.SaveSnapshot(ctx, snap); err != nil {
		return err
	}
	return o.deps.Freshness.Touch(ctx, symbol, store.KindFundamentals, now)
}

// processStage recomputes the indicator row and quality score for
// every fetched symbol. Per-symbol compute failures become skips.
func (o *Orchestrator) processStage(ctx context.Context, listings []contracts.Listing) {
	var (
		wg  sync.WaitGroup
		sem = make(chan struct{}, o.opts.Concurrency)
	)

	for _, l := range listings {
		wg.Add(1)
		sem <- struct{}{}
		go func(l contracts.Listing) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := o.processSymbol(ctx, l.Symbol); err != nil {
				o.log.WithError(err).WithField("symbol", l.Symbol).Warn("symbol compute skipped")
				o.job.AddSkip(l.Symbol)
				return
			}
			o.job.MarkProcessed()
		}(l)
	}
	wg.Wait()
}

func (o *Orchestrator) processSymbol(ctx context.Context, symbol string) error {
	now := o.now()

	bars, err := o.deps.PriceRepo.GetSeries(ctx, symbol)
	if err != nil {
		return fmt.Errorf("load series: %w", err)
	}
	if len(bars) == 0 {
		return fmt.Errorf("no price history")
	}

	row, err := o.deps.Engine.Latest(bars, now)
	if err != nil {
		return fmt.Errorf("compute indicators: %w", err)
	}
	if err := o.deps.IndicatorRepo.SaveRow(ctx, row); err != nil {
		return fmt.Errorf("save indicators: %w", err)
	}

	snap, err := o.deps.FundamentalsRepo.GetSnapshot(ctx, symbol)
	if err != nil {
		return fmt.Errorf("load fundamentals: %w", err)
	}
	if snap == nil {
		// Price-only symbols keep their indicator row but carry no
		// quality score, which excludes them from the combined screen.
		return nil
	}

	results, score := o.deps.Formulas.Evaluate(snap, now)
	if err := o.deps.IndicatorRepo.SaveQuality(ctx, &score, results); err != nil {
		return fmt.Errorf("save quality: %w", err)
	}
	return nil
}

// rankStage rebuilds the combined ranking from the full persisted
// data set and replaces the previous ranking wholesale.
func (o *Orchestrator) rankStage(ctx context.Context, listings []contracts.Listing) error {
	o.job.SetMessage("ranking combined screen")

	rows, err := o.deps.IndicatorRepo.GetAllRows(ctx)
	if err != nil {
		return fmt.Errorf("load indicator rows: %w", err)
	}
	quality, err := o.deps.IndicatorRepo.GetAllQuality(ctx)
	if err != nil {
		return fmt.Errorf("load quality scores: %w", err)
	}

	names := make(map[string]string, len(listings))
	for _, l := range listings {
		names[l.Symbol] = l.Name
	}

	candidates := make([]screener.Candidate, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, screener.Candidate{
			Row:        row,
			Quality:    quality[row.Symbol],
			EntityName: names[row.Symbol],
		})
	}

	ranked := o.deps.Scorer.Rank(candidates, o.opts.Screen, o.now())
	if err := o.deps.ScoreRepo.ReplaceAll(ctx, ranked); err != nil {
		return fmt.Errorf("replace ranking: %w", err)
	}
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, err error) {
	o.log.WithError(err).Error("refresh failed")
	o.job.Fail(err)
	o.notify(ctx, o.job.Status())
}

func (o *Orchestrator) notify(ctx context.Context, snap Snapshot) {
	if o.deps.Notifier == nil {
		return
	}

	var top []contracts.CombinedScore
	if snap.State == StateCompleted {
		if ranked, err := o.deps.ScoreRepo.GetRanking(ctx); err == nil {
			top = ranked
		}
	}
	if err := o.deps.Notifier.RefreshFinished(ctx, snap, top); err != nil {
		o.log.WithError(err).Warn("notify failed")
	}
}
