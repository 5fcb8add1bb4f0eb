package cleaning

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLedger appends the audit records of every cleaning run to a SQLite file.
// Nothing in the pipeline reads it back.
type AuditLedger struct {
	db *gorm.DB
}

func OpenLedger(path string) (*AuditLedger, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("ledger path is required")
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	if err := db.AutoMigrate(&AuditRun{}, &AuditStep{}); err != nil {
		return nil, fmt.Errorf("migrate ledger %s: %w", path, err)
	}
	return &AuditLedger{db: db}, nil
}

func (l *AuditLedger) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Record stores res under a fresh run id and returns that id.
func (l *AuditLedger) Record(res *RunResult) (string, error) {
	if res == nil {
		return "", fmt.Errorf("run result is nil")
	}
	runID := uuid.NewString()

	ids := make([]string, 0, len(res.Steps))
	rows := make([]AuditStep, 0, len(res.Steps))
	for _, s := range res.Steps {
		ids = append(ids, string(s.StepID))
		metricsJSON, err := json.Marshal(s.Metrics)
		if err != nil {
			return "", err
		}
		a := s.Audit
		rows = append(rows, AuditStep{
			RunID:        runID,
			Position:     s.Position,
			StepID:       string(s.StepID),
			StepName:     s.Name,
			InputPath:    a.Input.Path,
			OutputPath:   a.Output.Path,
			InputBytes:   a.Input.SizeBytes,
			OutputBytes:  a.Output.SizeBytes,
			InputLines:   a.Input.TotalLines,
			OutputLines:  a.Output.TotalLines,
			InputChars:   a.Input.TotalChars,
			OutputChars:  a.Output.TotalChars,
			DeltaLines:   a.DeltaLines,
			DeltaBytes:   a.DeltaBytes,
			DeltaChars:   a.DeltaChars,
			DeltaPercent: a.DeltaPercent,
			MetricsJSON:  string(metricsJSON),
		})
	}

	run := AuditRun{
		RunID:         runID,
		StartedAt:     res.StartedAt,
		InputPath:     res.Input,
		OutputDir:     res.OutputDir,
		FinalOutput:   res.FinalOutput,
		StepOrder:     strings.Join(ids, ","),
		OriginalBytes: res.Totals.OriginalBytes,
		FinalBytes:    res.Totals.FinalBytes,
		DeltaLines:    res.Totals.DeltaLines,
		DeltaBytes:    res.Totals.DeltaBytes,
		DeltaChars:    res.Totals.DeltaChars,
		DeltaPercent:  res.Totals.DeltaPercent,
	}

	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	return runID, nil
}

// Runs lists recorded runs, oldest first.
func (l *AuditLedger) Runs() ([]AuditRun, error) {
	var runs []AuditRun
	if err := l.db.Order("id asc").Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func (l *AuditLedger) Steps(runID string) ([]AuditStep, error) {
	var steps []AuditStep
	if err := l.db.Where("run_id = ?", runID).Order("position asc").Find(&steps).Error; err != nil {
		return nil, err
	}
	return steps, nil
}
