// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	taskforceai "github.com/taskforceai/taskforceai-go"
)

// DefaultTableName is the table used when [DatabaseStoreConfig.TableName] is empty.
const DefaultTableName = "taskforce_submissions"

// submissionModel is the database row of a [Submission].
type submissionModel struct {
	TaskID      string    `gorm:"primaryKey;size:128"`
	Prompt      string    `gorm:"type:text"`
	ModelID     string    `gorm:"size:128"`
	SubmittedAt time.Time `gorm:"index"`
}

func (m *submissionModel) toSubmission() *Submission {
	return &Submission{
		TaskID:      m.TaskID,
		Prompt:      m.Prompt,
		ModelID:     m.ModelID,
		SubmittedAt: m.SubmittedAt.UTC(),
	}
}

// DatabaseStore is a [Store] backed by a relational database through GORM.
type DatabaseStore struct {
	db        *gorm.DB
	tableName string
	ownsDB    bool
}

var _ Store = (*DatabaseStore)(nil)

// DatabaseStoreConfig holds configuration for DatabaseStore.
type DatabaseStoreConfig struct {
	DB        *gorm.DB
	TableName string // Optional, defaults to DefaultTableName
	// CloseDB closes the underlying connection pool on Close.
	CloseDB bool
}

// NewDatabaseStore creates a DatabaseStore. Call Initialize before first use.
func NewDatabaseStore(config DatabaseStoreConfig) (*DatabaseStore, error) {
	if config.DB == nil {
		return nil, &StoreError{Operation: "open", Err: errors.New("database connection cannot be nil")}
	}

	tableName := config.TableName
	if tableName == "" {
		tableName = DefaultTableName
	}

	return &DatabaseStore{
		db:        config.DB,
		tableName: tableName,
		ownsDB:    config.CloseDB,
	}, nil
}

func (s *DatabaseStore) table(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Table(s.tableName)
}

// Initialize creates the table if it does not exist.
func (s *DatabaseStore) Initialize(ctx context.Context) error {
	if err := s.table(ctx).AutoMigrate(&submissionModel{}); err != nil {
		return &StoreError{Operation: "initialize", Err: err}
	}
	return nil
}

// Save implements [Store].
func (s *DatabaseStore) Save(ctx context.Context, sub *Submission) error {
	if err := validate("save", sub); err != nil {
		return err
	}

	model := &submissionModel{
		TaskID:      sub.TaskID,
		Prompt:      sub.Prompt,
		ModelID:     sub.ModelID,
		SubmittedAt: sub.SubmittedAt.UTC(),
	}
	// Use GORM's Save method which handles both create and update
	if err := s.table(ctx).Save(model).Error; err != nil {
		return &StoreError{Operation: "save", TaskID: sub.TaskID, Err: err}
	}
	return nil
}

// Get implements [Store].
func (s *DatabaseStore) Get(ctx context.Context, taskID taskforceai.TaskID) (*Submission, error) {
	if taskID == "" {
		return nil, &StoreError{Operation: "get", Err: errors.New("task ID cannot be empty")}
	}

	var model submissionModel
	if err := s.table(ctx).Where("task_id = ?", taskID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &StoreError{Operation: "get", TaskID: taskID, Err: ErrNotFound}
		}
		return nil, &StoreError{Operation: "get", TaskID: taskID, Err: err}
	}
	return model.toSubmission(), nil
}

// Delete implements [Store].
func (s *DatabaseStore) Delete(ctx context.Context, taskID taskforceai.TaskID) error {
	if taskID == "" {
		return &StoreError{Operation: "delete", Err: errors.New("task ID cannot be empty")}
	}

	result := s.table(ctx).Where("task_id = ?", taskID).Delete(&submissionModel{})
	if result.Error != nil {
		return &StoreError{Operation: "delete", TaskID: taskID, Err: result.Error}
	}
	if result.RowsAffected == 0 {
		return &StoreError{Operation: "delete", TaskID: taskID, Err: ErrNotFound}
	}
	return nil
}

// List implements [Store].
func (s *DatabaseStore) List(ctx context.Context) ([]*Submission, error) {
	var models []submissionModel
	if err := s.table(ctx).Order("submitted_at").Order("task_id").Find(&models).Error; err != nil {
		return nil, &StoreError{Operation: "list", Err: err}
	}

	subs := make([]*Submission, len(models))
	for i := range models {
		subs[i] = models[i].toSubmission()
	}
	return subs, nil
}

// Close implements [Store]. The connection pool is closed only when the store owns it.
func (s *DatabaseStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return &StoreError{Operation: "close", Err: err}
	}
	return sqlDB.Close()
}
