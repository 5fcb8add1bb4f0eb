package cleaning

import "time"

// AuditRun is one cleaning pipeline run in the audit ledger.
type AuditRun struct {
	ID            uint      `gorm:"primaryKey"`
	RunID         string    `gorm:"uniqueIndex;size:36"`
	StartedAt     time.Time `gorm:"index"`
	InputPath     string    `gorm:"index;size:1024"`
	OutputDir     string    `gorm:"size:1024"`
	FinalOutput   string    `gorm:"size:1024"`
	StepOrder     string    `gorm:"size:512"` // comma-separated step ids
	OriginalBytes int64
	FinalBytes    int64
	DeltaLines    int64
	DeltaBytes    int64
	DeltaChars    int64
	DeltaPercent  float64
}

// AuditStep is one executed step of a run. Rows are only ever inserted.
type AuditStep struct {
	ID           uint   `gorm:"primaryKey"`
	RunID        string `gorm:"index;size:36"`
	Position     int    `gorm:"index"`
	StepID       string `gorm:"index;size:32"`
	StepName     string `gorm:"size:128"`
	InputPath    string `gorm:"size:1024"`
	OutputPath   string `gorm:"size:1024"`
	InputBytes   int64
	OutputBytes  int64
	InputLines   int
	OutputLines  int
	InputChars   int
	OutputChars  int
	DeltaLines   int64
	DeltaBytes   int64
	DeltaChars   int64
	DeltaPercent float64
	MetricsJSON  string `gorm:"type:text"`
}
