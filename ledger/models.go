package ledger

import (
	"time"
)

// ModerationDecision is one append-only row in the decision log. Rows are
// never updated or deleted; reversals and follow-ups are new rows.
type ModerationDecision struct {
	ID                uint64 `gorm:"primaryKey"`
	TargetType        string `gorm:"not null"`
	TargetID          string `gorm:"not null;index"`
	Action            string `gorm:"not null"`
	Reason            *string
	ModeratorIdentity *string
	ReportID          *string
	ReporterIdentity  *string
	CreatedAt         time.Time `gorm:"not null"`
}

// ModerationTarget is the derived per-target review state. EverHumanReviewed
// is monotonic: set true by the first human decision, never reset.
type ModerationTarget struct {
	TargetID          string `gorm:"primaryKey"`
	TargetType        string `gorm:"not null"`
	EverHumanReviewed bool   `gorm:"not null;default:false"`
}
