package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"golang.org/x/sync/errgroup"

	"github.com/gavel-mod/gavel/reputation"
	"github.com/gavel-mod/gavel/thread"
)

// Timeout causes, recorded so a deadline error names which budget fired.
var (
	errThreadBudget   = errors.New("thread fetch budget exceeded")
	errStatsBudget    = errors.New("user stats budget exceeded")
	errReporterBudget = errors.New("reporter fetch budget exceeded")
)

// ReportContext is everything a reviewer needs in front of them to act on
// one report.
type ReportContext struct {
	Report *nostr.Event
	Target *Target

	// Thread is nil for pubkey targets and for event targets whose root is
	// no longer present in the store.
	Thread *thread.Node

	ReportedPubkey  string
	ReportedProfile *reputation.Profile
	ReportedStats   *reputation.UserStats

	ReporterProfile *reputation.Profile
	// ReporterReportCount is enrichment; it degrades to zero when the fetch
	// fails rather than failing the whole context.
	ReporterReportCount int
}

type ContextBuilder struct {
	Threads    *thread.Fetcher
	Reputation *reputation.Aggregator
	Logger     *slog.Logger

	// Per-subfetch budgets, each composed with the caller's cancellation.
	// Thread graphs can be large; reputation counts are small bounded
	// queries, so the budgets are tuned independently.
	ThreadTimeout   time.Duration
	StatsTimeout    time.Duration
	ReporterTimeout time.Duration
}

func NewContextBuilder(threads *thread.Fetcher, rep *reputation.Aggregator, logger *slog.Logger) *ContextBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContextBuilder{
		Threads:         threads,
		Reputation:      rep,
		Logger:          logger.With("system", "report"),
		ThreadTimeout:   10 * time.Second,
		StatsTimeout:    8 * time.Second,
		ReporterTimeout: 3 * time.Second,
	}
}

// BuildContext aggregates review context for one report. The thread fetch,
// reported-party stats, and reporter fetches run concurrently; mandatory
// fetches (thread, reported stats, reporter profile) propagate their errors,
// the reporter report-count degrades to zero. A nil report yields a nil
// context.
func (b *ContextBuilder) BuildContext(ctx context.Context, reportEvt *nostr.Event) (*ReportContext, error) {
	if reportEvt == nil {
		return nil, nil
	}
	target, err := ResolveTarget(reportEvt)
	if err != nil {
		return nil, fmt.Errorf("resolving report target: %w", err)
	}
	rc := &ReportContext{
		Report:         reportEvt,
		Target:         target,
		ReportedPubkey: target.ReportedPubkey,
	}

	var g errgroup.Group

	// thread + reported-party stats; stats wait on the thread because the
	// reported party is whoever owns the resolved root
	g.Go(func() error {
		if target.Type == TargetEvent {
			node, err := b.fetchThread(ctx, target.Value)
			if err != nil {
				return err
			}
			if node != nil {
				rc.Thread = node
				rc.ReportedPubkey = node.Event.PubKey
			}
		}
		statsCtx, cancel := context.WithTimeoutCause(ctx, b.StatsTimeout, errStatsBudget)
		defer cancel()
		stats, err := b.Reputation.UserStats(statsCtx, rc.ReportedPubkey)
		if err != nil {
			return fmt.Errorf("fetching reported-user stats: %w", err)
		}
		rc.ReportedStats = stats
		profile, err := b.Reputation.Profile(statsCtx, rc.ReportedPubkey)
		if err != nil {
			return fmt.Errorf("fetching reported-user profile: %w", err)
		}
		rc.ReportedProfile = profile
		return nil
	})

	g.Go(func() error {
		profileCtx, cancel := context.WithTimeoutCause(ctx, b.ReporterTimeout, errReporterBudget)
		defer cancel()
		profile, err := b.Reputation.Profile(profileCtx, reportEvt.PubKey)
		if err != nil {
			return fmt.Errorf("fetching reporter profile: %w", err)
		}
		rc.ReporterProfile = profile
		return nil
	})

	g.Go(func() error {
		countCtx, cancel := context.WithTimeoutCause(ctx, b.ReporterTimeout, errReporterBudget)
		defer cancel()
		count, err := b.Reputation.ReportCount(countCtx, reportEvt.PubKey)
		if err != nil {
			// enrichment only
			b.Logger.Warn("reporter report-count fetch failed, degrading to zero", "reporter", reportEvt.PubKey, "err", err)
			return nil
		}
		rc.ReporterReportCount = count
		return nil
	})

	if err := g.Wait(); err != nil {
		contextBuildErrors.Inc()
		return nil, err
	}
	contextsBuilt.WithLabelValues(string(target.Type)).Inc()
	return rc, nil
}

// fetchThread resolves the conversation root for the reported event and
// rebuilds the tree under it, all within the thread budget. A root that is
// absent from the store is an explicit no-thread result, not an error.
func (b *ContextBuilder) fetchThread(ctx context.Context, eventID string) (*thread.Node, error) {
	ctx, cancel := context.WithTimeoutCause(ctx, b.ThreadTimeout, errThreadBudget)
	defer cancel()

	root, err := b.Threads.ResolveRoot(ctx, eventID)
	if err != nil {
		if errors.Is(err, thread.ErrRootNotFound) {
			b.Logger.Debug("reported event absent from store", "event", eventID)
			return nil, nil
		}
		return nil, fmt.Errorf("resolving conversation root: %w", err)
	}
	node, err := b.Threads.FetchThread(ctx, root.ID)
	if err != nil {
		if errors.Is(err, thread.ErrRootNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching thread: %w", err)
	}
	return node, nil
}
