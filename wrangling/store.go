package wrangling

import (
	"fmt"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"chat-wrangler/fileutil"
)

// MessageRow is the core column set as stored in messages.db.
type MessageRow struct {
	ID                uint      `gorm:"primaryKey"`
	Timestamp         time.Time `gorm:"index"`
	Sender            string    `gorm:"index;size:128"`
	MessageType       string    `gorm:"index;size:32"`
	EnrichedContent   string    `gorm:"type:text"`
	MediaFilename     string    `gorm:"index;size:255"`
	HasTranscription  bool      `gorm:"index"`
	TranscriptionText string    `gorm:"type:text"`
	IsSynthetic       bool
}

func (MessageRow) TableName() string { return "messages" }

// MinimalMessageRow is the minimal column set.
type MinimalMessageRow struct {
	ID              uint      `gorm:"primaryKey"`
	Timestamp       time.Time `gorm:"index"`
	Sender          string    `gorm:"index;size:128"`
	MessageType     string    `gorm:"index;size:32"`
	EnrichedContent string    `gorm:"type:text"`
}

func (MinimalMessageRow) TableName() string { return "messages_minimal" }

// writeSQLite builds a fresh database next to path and renames it into place, so
// an existing messages.db is replaced whole.
func writeSQLite(path string, msgs []Message) error {
	tmp, err := fileutil.TempSibling(path)
	if err != nil {
		return err
	}
	if err := fillSQLite(tmp, msgs); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return fileutil.Commit(tmp, path)
}

func fillSQLite(path string, msgs []Message) error {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := db.AutoMigrate(&MessageRow{}, &MinimalMessageRow{}); err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	core := make([]MessageRow, 0, len(msgs))
	minimal := make([]MinimalMessageRow, 0, len(msgs))
	for _, m := range msgs {
		core = append(core, MessageRow{
			Timestamp:         m.Timestamp,
			Sender:            m.Sender,
			MessageType:       string(m.Type),
			EnrichedContent:   m.Content(),
			MediaFilename:     m.MediaFilename,
			HasTranscription:  m.HasTranscription,
			TranscriptionText: m.TranscriptionText,
			IsSynthetic:       m.IsSynthetic,
		})
		minimal = append(minimal, MinimalMessageRow{
			Timestamp:       m.Timestamp,
			Sender:          m.Sender,
			MessageType:     string(m.Type),
			EnrichedContent: m.Content(),
		})
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(&core, 500).Error; err != nil {
			return err
		}
		return tx.CreateInBatches(&minimal, 500).Error
	})
}
