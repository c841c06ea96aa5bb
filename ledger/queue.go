package ledger

import (
	"context"
)

// QueueOpts controls the dashboard's default review queue. Auto-flagged
// targets are always excluded from the default view; they live in the
// pending-review view instead.
type QueueOpts struct {
	HideResolved bool
}

// Queue is a partition of candidate targets for the two dashboard views,
// with input order preserved.
type Queue struct {
	// Default is the main review queue.
	Default []string
	// Pending is the auto-hidden, not-yet-human-reviewed set.
	Pending []string
}

// states resolves review state for a batch of targets in two queries.
func (l *Ledger) states(ctx context.Context, targetIDs []string) (map[string]ReviewState, error) {
	out := make(map[string]ReviewState, len(targetIDs))
	if len(targetIDs) == 0 {
		return out, nil
	}
	for _, id := range targetIDs {
		out[id] = StateNew
	}

	var decided []string
	if err := l.db.WithContext(ctx).Model(&ModerationDecision{}).
		Where("target_id IN ?", targetIDs).
		Distinct("target_id").Pluck("target_id", &decided).Error; err != nil {
		return nil, err
	}
	for _, id := range decided {
		out[id] = StateAutoFlagged
	}

	var targets []ModerationTarget
	if err := l.db.WithContext(ctx).
		Where("target_id IN ?", targetIDs).
		Find(&targets).Error; err != nil {
		return nil, err
	}
	for _, t := range targets {
		if t.EverHumanReviewed {
			out[t.TargetID] = StateResolved
		}
	}
	return out, nil
}

// PartitionQueue splits candidate targets into the default and
// pending-review views.
func (l *Ledger) PartitionQueue(ctx context.Context, targetIDs []string, opts QueueOpts) (*Queue, error) {
	states, err := l.states(ctx, targetIDs)
	if err != nil {
		return nil, err
	}
	q := &Queue{}
	for _, id := range targetIDs {
		switch states[id] {
		case StateAutoFlagged:
			q.Pending = append(q.Pending, id)
		case StateResolved:
			if !opts.HideResolved {
				q.Default = append(q.Default, id)
			}
		default:
			q.Default = append(q.Default, id)
		}
	}
	return q, nil
}
