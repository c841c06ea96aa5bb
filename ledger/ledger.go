// Package ledger records moderation decisions durably and derives the
// per-target review state which drives the auto-hide / pending-review
// workflow: a target stays "pending review" until the first human decision
// lands against it, no matter how many automated decisions accumulate.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ActionAutoHidden is the automated enforcement action. The action set is
// open; anything else is treated as human unless Config says otherwise.
const ActionAutoHidden = "auto_hidden"

// Well-known human actions.
const (
	ActionDismiss = "dismiss"
	ActionBanned  = "banned"
	ActionDeleted = "deleted"
)

type ReviewState string

const (
	StateNew         ReviewState = "NEW"
	StateAutoFlagged ReviewState = "AUTO_FLAGGED"
	StateResolved    ReviewState = "RESOLVED"
)

// ErrTargetSyncFailed indicates the decision row was inserted but the
// derived target-state upsert failed. The decision is durable; callers
// should retry the target sync via RecomputeTarget.
var ErrTargetSyncFailed = errors.New("decision recorded but target state update failed")

type Config struct {
	// AutoAction is the action value recorded by automated enforcement.
	AutoAction string
	// HumanActions, when set, is the exact set of actions which count as
	// human review (used verbatim by Backfill); when empty, every action
	// other than AutoAction counts.
	HumanActions []string
}

type Ledger struct {
	db     *gorm.DB
	config Config
	logger *slog.Logger
}

// NewLedger migrates the decision and target tables and returns a handle.
// Migration is additive and safe to re-run against an initialized store.
func NewLedger(db *gorm.DB, config Config, logger *slog.Logger) (*Ledger, error) {
	if config.AutoAction == "" {
		config.AutoAction = ActionAutoHidden
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := db.AutoMigrate(&ModerationDecision{}, &ModerationTarget{}); err != nil {
		return nil, fmt.Errorf("migrating ledger schema: %w", err)
	}
	return &Ledger{
		db:     db,
		config: config,
		logger: logger.With("system", "ledger"),
	}, nil
}

func (l *Ledger) isHuman(action string) bool {
	if len(l.config.HumanActions) > 0 {
		for _, a := range l.config.HumanActions {
			if a == action {
				return true
			}
		}
		return false
	}
	return action != l.config.AutoAction
}

// Decision is the caller-facing input for one append.
type Decision struct {
	TargetType        string
	TargetID          string
	Action            string
	Reason            string
	ModeratorIdentity string
	ReportID          string
	ReporterIdentity  string
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// AppendDecision inserts a decision row and, for human actions, marks the
// target ever-human-reviewed. The target merge is an idempotent
// set-true-never-false upsert, so concurrent appends against the same target
// cannot race the flag backwards.
func (l *Ledger) AppendDecision(ctx context.Context, d Decision) (*ModerationDecision, error) {
	if d.TargetID == "" || d.Action == "" {
		return nil, fmt.Errorf("decision requires a target id and an action")
	}
	row := &ModerationDecision{
		TargetType:        d.TargetType,
		TargetID:          d.TargetID,
		Action:            d.Action,
		Reason:            optional(d.Reason),
		ModeratorIdentity: optional(d.ModeratorIdentity),
		ReportID:          optional(d.ReportID),
		ReporterIdentity:  optional(d.ReporterIdentity),
		CreatedAt:         time.Now().UTC(),
	}
	if err := l.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, fmt.Errorf("inserting decision: %w", err)
	}

	human := l.isHuman(d.Action)
	if human {
		if err := l.markReviewed(ctx, d.TargetID, d.TargetType); err != nil {
			// the decision row is durable; surface the failed derivation so
			// the caller retries rather than leaving the target stuck NEW
			return row, fmt.Errorf("%w: %v", ErrTargetSyncFailed, err)
		}
	}
	class := "human"
	if !human {
		class = "auto"
	}
	decisionsAppended.WithLabelValues(class).Inc()
	l.logger.Info("decision recorded", "target", d.TargetID, "action", d.Action, "human", human)
	return row, nil
}

func (l *Ledger) markReviewed(ctx context.Context, targetID, targetType string) error {
	return l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "target_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"ever_human_reviewed": true,
		}),
	}).Create(&ModerationTarget{
		TargetID:          targetID,
		TargetType:        targetType,
		EverHumanReviewed: true,
	}).Error
}

// EverHumanReviewed reports the target's flag, defaulting to false when the
// target has no row yet.
func (l *Ledger) EverHumanReviewed(ctx context.Context, targetID string) (bool, error) {
	var target ModerationTarget
	err := l.db.WithContext(ctx).First(&target, "target_id = ?", targetID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return target.EverHumanReviewed, nil
}

// TargetState derives the review state: NEW with no decisions,
// AUTO_FLAGGED with only automated decisions, RESOLVED once any human
// decision has been recorded. RESOLVED is terminal.
func (l *Ledger) TargetState(ctx context.Context, targetID string) (ReviewState, error) {
	reviewed, err := l.EverHumanReviewed(ctx, targetID)
	if err != nil {
		return StateNew, err
	}
	if reviewed {
		return StateResolved, nil
	}
	var count int64
	if err := l.db.WithContext(ctx).Model(&ModerationDecision{}).
		Where("target_id = ?", targetID).Count(&count).Error; err != nil {
		return StateNew, err
	}
	if count > 0 {
		return StateAutoFlagged, nil
	}
	return StateNew, nil
}

// DecisionsForTarget returns the target's full decision history, oldest
// first.
func (l *Ledger) DecisionsForTarget(ctx context.Context, targetID string) ([]ModerationDecision, error) {
	var rows []ModerationDecision
	err := l.db.WithContext(ctx).
		Where("target_id = ?", targetID).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// RecomputeTarget rebuilds a target's derived state from its decision log.
// Used to repair a failed post-insert sync; it only ever upgrades the flag.
func (l *Ledger) RecomputeTarget(ctx context.Context, targetID string) error {
	rows, err := l.DecisionsForTarget(ctx, targetID)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if l.isHuman(row.Action) {
			return l.markReviewed(ctx, targetID, row.TargetType)
		}
	}
	return nil
}

// Backfill recomputes target state for every target present in the decision
// log. Which historical actions count as human follows Config.HumanActions.
func (l *Ledger) Backfill(ctx context.Context) error {
	var targetIDs []string
	if err := l.db.WithContext(ctx).Model(&ModerationDecision{}).
		Distinct("target_id").Pluck("target_id", &targetIDs).Error; err != nil {
		return err
	}
	for _, id := range targetIDs {
		if err := l.RecomputeTarget(ctx, id); err != nil {
			return fmt.Errorf("backfilling target %s: %w", id, err)
		}
	}
	l.logger.Info("ledger backfill complete", "targets", len(targetIDs))
	return nil
}
