package translate

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/video-stream/subtrans/internal/logging"
	"github.com/video-stream/subtrans/internal/metrics"
	"github.com/video-stream/subtrans/internal/subtitle"
)

const (
	DefaultMaxRetryRounds = 3
	DefaultRetryDelay     = 5 * time.Second
	DefaultConcurrency    = 5
	DefaultBatchInterval  = time.Second

	// minBatchChars keeps a usable budget when the prompt overhead is large
	minBatchChars = 1000
)

// EngineOptions configures a translation run
type EngineOptions struct {
	CharBudget     int
	MaxItems       int
	MaxRetryRounds int
	RetryDelay     time.Duration
	Concurrency    int
	// BatchInterval paces LLM calls; zero disables pacing
	BatchInterval time.Duration
	// CallTimeout bounds one client call; a timeout counts as a transport failure
	CallTimeout time.Duration

	Classifier Classifier
	Prompt     PromptOptions
	RawLog     *RawLogger
	Logger     *logrus.Entry
	OnProgress func(float64)
}

func DefaultEngineOptions() EngineOptions {
	return EngineOptions{
		CharBudget:     CharBudget(DefaultTokensPerBatch, CharsPerToken),
		MaxItems:       DefaultMaxItems,
		MaxRetryRounds: DefaultMaxRetryRounds,
		RetryDelay:     DefaultRetryDelay,
		Concurrency:    DefaultConcurrency,
		BatchInterval:  DefaultBatchInterval,
		CallTimeout:    10 * time.Minute,
		Classifier:     DefaultClassifier(),
	}
}

// ErrorEntry describes one segment flagged after the first pass
type ErrorEntry struct {
	ID         string `json:"id"`
	Source     string `json:"source"`
	Translated string `json:"translated,omitempty"`
}

// ErrorReport lists the segments that needed repair after the first pass, and
// those still failing once the repair rounds are spent.
type ErrorReport struct {
	HardErrors []ErrorEntry `json:"hard_errors"`
	SoftErrors []ErrorEntry `json:"soft_errors"`
	Unresolved []ErrorEntry `json:"unresolved"`
}

// Outcome is the result of a run. Track always holds every input segment.
type Outcome struct {
	Track      []subtitle.Segment
	Success    bool
	Unresolved int
	Rounds     int
	Report     ErrorReport
	Message    string
}

// Engine translates segments and repairs failures over bounded rounds
type Engine struct {
	client  Client
	opts    EngineOptions
	batcher Batcher
	limiter *rate.Limiter
	log     *logrus.Entry
}

func NewEngine(client Client, opts EngineOptions) *Engine {
	def := DefaultEngineOptions()
	if opts.CharBudget <= 0 {
		opts.CharBudget = def.CharBudget
	}
	if opts.MaxItems <= 0 {
		opts.MaxItems = def.MaxItems
	}
	if opts.MaxRetryRounds < 0 {
		opts.MaxRetryRounds = 0
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = def.Concurrency
	}

	base := BaseCost(opts.Prompt)
	if opts.CharBudget-base < minBatchChars {
		base = max(0, opts.CharBudget-minBatchChars)
	}

	limit := rate.Inf
	if opts.BatchInterval > 0 {
		limit = rate.Every(opts.BatchInterval)
	}

	return &Engine{
		client:  client,
		opts:    opts,
		batcher: Batcher{CharBudget: opts.CharBudget, MaxItems: opts.MaxItems, BaseCost: base},
		limiter: rate.NewLimiter(limit, 1),
		log:     logging.OrDiscard(opts.Logger),
	}
}

// Run translates segments. It returns an error only when ctx is done; translation
// failures are reported through the outcome.
func (e *Engine) Run(ctx context.Context, segments []subtitle.Segment) (*Outcome, error) {
	if e.client == nil {
		return nil, ErrNoClient
	}

	tasks := TasksFor(segments)
	current := make(map[string]string, len(tasks))

	batches := e.batcher.Make(tasks)
	e.log.WithFields(logrus.Fields{
		"segments": len(tasks),
		"batches":  len(batches),
		"engine":   e.client.Name(),
		"scheme":   e.opts.Prompt.Scheme.String(),
	}).Info("translating")

	if err := e.runRound(ctx, 0, batches, current, 0, 0.8); err != nil {
		return nil, err
	}

	soft, hard := e.classify(tasks, current)
	report := buildReport(soft, hard, current)

	rounds := 0
	for round := 1; round <= e.opts.MaxRetryRounds && len(soft)+len(hard) > 0; round++ {
		e.log.WithFields(logrus.Fields{
			"round": round,
			"soft":  len(soft),
			"hard":  len(hard),
		}).Info("repairing segments")

		if err := sleepCtx(ctx, e.opts.RetryDelay); err != nil {
			return nil, err
		}

		retry := e.batcher.Make(soft)
		for _, t := range hard {
			retry = append(retry, Batch{t})
		}

		lo := 0.8 + 0.2*float64(round-1)/float64(e.opts.MaxRetryRounds)
		hi := 0.8 + 0.2*float64(round)/float64(e.opts.MaxRetryRounds)
		if err := e.runRound(ctx, round, retry, current, lo, hi); err != nil {
			return nil, err
		}
		metrics.IncRetryRound()
		rounds = round

		soft, hard = e.classify(tasks, current)
	}
	report.Unresolved = unresolvedEntries(soft, hard, current)

	out := &Outcome{
		Track:      make([]subtitle.Segment, len(segments)),
		Unresolved: len(soft) + len(hard),
		Rounds:     rounds,
		Report:     report,
	}
	for i, s := range segments {
		s.TranslatedText = current[s.ID]
		out.Track[i] = s
	}
	out.Success = out.Unresolved == 0
	if out.Success {
		out.Message = fmt.Sprintf("translated %d segments", len(segments))
	} else {
		out.Message = fmt.Sprintf("%d of %d segments unresolved after %d repair rounds", out.Unresolved, len(segments), rounds)
		metrics.AddUnresolved(out.Unresolved)
		e.log.WithField("unresolved", out.Unresolved).Warn("translation incomplete")
	}
	e.progress(1)
	return out, nil
}

// runRound sends batches concurrently and applies their results in batch order
func (e *Engine) runRound(ctx context.Context, round int, batches []Batch, current map[string]string, lo, hi float64) error {
	results := make([]map[string]string, len(batches))
	var done atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for i, batch := range batches {
		g.Go(func() error {
			if err := e.limiter.Wait(gctx); err != nil {
				return err
			}
			res, err := e.translateBatch(gctx, fmt.Sprintf("r%d_b%d", round, i), batch)
			if err != nil {
				return err
			}
			results[i] = res

			n := done.Add(1)
			e.progress(lo + (hi-lo)*float64(n)/float64(len(batches)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, res := range results {
		for id, text := range res {
			current[id] = text
		}
	}
	return nil
}

// translateBatch returns a translation for every task of batch. The error is non-nil
// only when ctx is done.
func (e *Engine) translateBatch(ctx context.Context, taskID string, batch Batch) (map[string]string, error) {
	callCtx := ctx
	if e.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.opts.CallTimeout)
		defer cancel()
	}

	log := e.log.WithFields(logrus.Fields{"task": taskID, "items": len(batch)})

	completion, err := e.client.Call(callCtx, BuildMessages(batch, e.opts.Prompt), taskID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.WithError(err).Warn("batch call failed")
		if lerr := e.opts.RawLog.Log(taskID, nil, err); lerr != nil {
			log.WithError(lerr).Warn("write raw log")
		}
		metrics.ObserveBatch("call_failed")
		failed := make(map[string]string, len(batch))
		for _, t := range batch {
			failed[t.ID] = failedPlaceholder("TRANSLATION_FAILED", t.TextEN)
		}
		return failed, nil
	}

	if err := e.opts.RawLog.Log(taskID, completion, nil); err != nil {
		log.WithError(err).Warn("write raw log")
	}

	v := Validate(completion.Text, batch, e.opts.Prompt.Scheme, OutputKey(e.opts.Prompt.TargetLang))
	if v.Err != ValidationOK {
		log.WithField("reason", v.Err.String()).Warn("batch response rejected")
	} else if len(v.ItemErrors) > 0 {
		log.WithField("item_errors", len(v.ItemErrors)).Warn("batch response partially rejected")
	}
	metrics.ObserveBatch(v.Err.String())
	return v.Translations, nil
}

func (e *Engine) classify(tasks []Task, current map[string]string) (soft, hard []Task) {
	for _, t := range tasks {
		switch e.opts.Classifier.Classify(current[t.ID]) {
		case ErrorSoft:
			soft = append(soft, t)
		case ErrorHard:
			hard = append(hard, t)
		}
	}
	return soft, hard
}

func (e *Engine) progress(p float64) {
	if e.opts.OnProgress != nil {
		e.opts.OnProgress(p)
	}
}

func buildReport(soft, hard []Task, current map[string]string) ErrorReport {
	report := ErrorReport{
		HardErrors: make([]ErrorEntry, 0, len(hard)),
		SoftErrors: make([]ErrorEntry, 0, len(soft)),
	}
	for _, t := range hard {
		report.HardErrors = append(report.HardErrors, ErrorEntry{ID: t.ID, Source: t.TextEN, Translated: current[t.ID]})
	}
	for _, t := range soft {
		report.SoftErrors = append(report.SoftErrors, ErrorEntry{ID: t.ID, Source: t.TextEN})
	}
	return report
}

// unresolvedEntries keeps the last translation attempt of every failing segment
func unresolvedEntries(soft, hard []Task, current map[string]string) []ErrorEntry {
	out := make([]ErrorEntry, 0, len(soft)+len(hard))
	for _, t := range hard {
		out = append(out, ErrorEntry{ID: t.ID, Source: t.TextEN, Translated: current[t.ID]})
	}
	for _, t := range soft {
		out = append(out, ErrorEntry{ID: t.ID, Source: t.TextEN, Translated: current[t.ID]})
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
