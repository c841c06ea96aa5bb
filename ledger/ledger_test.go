package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqldb, err := db.DB()
	require.NoError(t, err)
	// each sqlite :memory: connection is its own database
	sqldb.SetMaxOpenConns(1)
	return db
}

func testLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := NewLedger(testDB(t), Config{}, nil)
	require.NoError(t, err)
	return l
}

func TestEverHumanReviewedMonotonic(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	l := testLedger(t)

	reviewed, err := l.EverHumanReviewed(ctx, "t1")
	require.NoError(t, err)
	assert.False(reviewed, "no rows defaults to false")

	// automated decisions never set the flag
	_, err = l.AppendDecision(ctx, Decision{TargetType: "event", TargetID: "t1", Action: ActionAutoHidden})
	require.NoError(t, err)
	_, err = l.AppendDecision(ctx, Decision{TargetType: "event", TargetID: "t1", Action: ActionAutoHidden})
	require.NoError(t, err)
	reviewed, err = l.EverHumanReviewed(ctx, "t1")
	require.NoError(t, err)
	assert.False(reviewed)

	state, err := l.TargetState(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(StateAutoFlagged, state)

	// one human decision resolves the target
	_, err = l.AppendDecision(ctx, Decision{
		TargetType:        "event",
		TargetID:          "t1",
		Action:            ActionDismiss,
		ModeratorIdentity: "mod1",
	})
	require.NoError(t, err)
	reviewed, err = l.EverHumanReviewed(ctx, "t1")
	require.NoError(t, err)
	assert.True(reviewed)

	// later automated decisions never downgrade it
	_, err = l.AppendDecision(ctx, Decision{TargetType: "event", TargetID: "t1", Action: ActionAutoHidden})
	require.NoError(t, err)
	reviewed, err = l.EverHumanReviewed(ctx, "t1")
	require.NoError(t, err)
	assert.True(reviewed)

	state, err = l.TargetState(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(StateResolved, state)

	rows, err := l.DecisionsForTarget(ctx, "t1")
	require.NoError(t, err)
	assert.Len(rows, 4, "the log is append-only")
}

func TestAppendValidation(t *testing.T) {
	ctx := context.Background()
	l := testLedger(t)

	_, err := l.AppendDecision(ctx, Decision{TargetID: "t1"})
	assert.Error(t, err)
	_, err = l.AppendDecision(ctx, Decision{Action: ActionDismiss})
	assert.Error(t, err)
}

func TestConcurrentDistinctTargets(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	l := testLedger(t)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := l.AppendDecision(ctx, Decision{TargetType: "event", TargetID: "human-target", Action: ActionBanned})
			assert.NoError(err)
		}()
		go func() {
			defer wg.Done()
			_, err := l.AppendDecision(ctx, Decision{TargetType: "event", TargetID: "auto-target", Action: ActionAutoHidden})
			assert.NoError(err)
		}()
	}
	wg.Wait()

	reviewed, err := l.EverHumanReviewed(ctx, "human-target")
	require.NoError(t, err)
	assert.True(reviewed)

	reviewed, err = l.EverHumanReviewed(ctx, "auto-target")
	require.NoError(t, err)
	assert.False(reviewed, "states must not cross-contaminate")
}

func TestReviewScenario(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	l := testLedger(t)

	// reports exist against V0..V6; the classification pipeline auto-hides
	// only the csam-category targets V5 and V6
	all := []string{"V0", "V1", "V2", "V3", "V4", "V5", "V6"}
	for _, id := range []string{"V5", "V6"} {
		_, err := l.AppendDecision(ctx, Decision{TargetType: "event", TargetID: id, Action: ActionAutoHidden})
		require.NoError(t, err)
	}

	for _, id := range []string{"V0", "V1", "V2", "V3", "V4"} {
		state, err := l.TargetState(ctx, id)
		require.NoError(t, err)
		assert.Equal(StateNew, state, id)
	}
	for _, id := range []string{"V5", "V6"} {
		state, err := l.TargetState(ctx, id)
		require.NoError(t, err)
		assert.Equal(StateAutoFlagged, state, id)
	}

	// human review resolves V0 and V1
	_, err := l.AppendDecision(ctx, Decision{TargetType: "event", TargetID: "V0", Action: ActionDismiss, ModeratorIdentity: "mod1"})
	require.NoError(t, err)
	_, err = l.AppendDecision(ctx, Decision{TargetType: "event", TargetID: "V1", Action: ActionBanned, ModeratorIdentity: "mod1"})
	require.NoError(t, err)
	for _, id := range []string{"V0", "V1"} {
		state, err := l.TargetState(ctx, id)
		require.NoError(t, err)
		assert.Equal(StateResolved, state, id)
	}

	q, err := l.PartitionQueue(ctx, all, QueueOpts{HideResolved: true})
	require.NoError(t, err)
	assert.Equal([]string{"V2", "V3", "V4"}, q.Default)
	assert.Equal([]string{"V5", "V6"}, q.Pending)

	q, err = l.PartitionQueue(ctx, all, QueueOpts{HideResolved: false})
	require.NoError(t, err)
	assert.Equal([]string{"V0", "V1", "V2", "V3", "V4"}, q.Default)
	assert.Equal([]string{"V5", "V6"}, q.Pending)
}

func TestMigrationRerun(t *testing.T) {
	db := testDB(t)
	_, err := NewLedger(db, Config{}, nil)
	require.NoError(t, err)
	// re-initializing an already-deployed schema is a no-op
	_, err = NewLedger(db, Config{}, nil)
	require.NoError(t, err)
}

func TestBackfill(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	db := testDB(t)
	l, err := NewLedger(db, Config{}, nil)
	require.NoError(t, err)

	// simulate historical decision rows with no derived target state
	require.NoError(t, db.Create(&ModerationDecision{TargetType: "event", TargetID: "old1", Action: ActionDeleted}).Error)
	require.NoError(t, db.Create(&ModerationDecision{TargetType: "event", TargetID: "old2", Action: ActionAutoHidden}).Error)

	require.NoError(t, l.Backfill(ctx))

	reviewed, err := l.EverHumanReviewed(ctx, "old1")
	require.NoError(t, err)
	assert.True(reviewed)
	reviewed, err = l.EverHumanReviewed(ctx, "old2")
	require.NoError(t, err)
	assert.False(reviewed)
}

func TestBackfillConfiguredHumanActions(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	db := testDB(t)
	l, err := NewLedger(db, Config{HumanActions: []string{ActionBanned}}, nil)
	require.NoError(t, err)

	require.NoError(t, db.Create(&ModerationDecision{TargetType: "event", TargetID: "a", Action: ActionDismiss}).Error)
	require.NoError(t, db.Create(&ModerationDecision{TargetType: "event", TargetID: "b", Action: ActionBanned}).Error)
	require.NoError(t, l.Backfill(ctx))

	// with an explicit allowlist only the listed actions count as human
	reviewed, err := l.EverHumanReviewed(ctx, "a")
	require.NoError(t, err)
	assert.False(reviewed)
	reviewed, err = l.EverHumanReviewed(ctx, "b")
	require.NoError(t, err)
	assert.True(reviewed)
}
