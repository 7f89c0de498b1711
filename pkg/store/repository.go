package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository writes report documents into one table per destination.
// Writes are replace-or-insert keyed by id, safe to repeat with identical
// inputs and safe under overlapping runs (last writer wins).
type Repository struct {
	db         *gorm.DB
	loadSource string
	migrated   map[string]bool
}

func NewRepository(db *gorm.DB, loadSource string) *Repository {
	return &Repository{
		db:         db,
		loadSource: loadSource,
		migrated:   make(map[string]bool),
	}
}

// EnsureSchema migrates the destination table once per process. Migration
// is retried on the next write if the store was unreachable.
func (r *Repository) EnsureSchema(destination string) error {
	if r.migrated[destination] {
		return nil
	}
	if err := r.db.Table(destination).AutoMigrate(&Document{}); err != nil {
		return err
	}
	r.migrated[destination] = true
	return nil
}

// UpsertDocument writes the document with ON CONFLICT (id) DO UPDATE.
// Store errors are returned unmodified so the orchestrator records the
// driver's own message.
func (r *Repository) UpsertDocument(ctx context.Context, destination string, doc *Document) error {
	if err := r.EnsureSchema(destination); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Table(destination).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(doc).Error
}

// Upsert builds the document from raw rows and writes it.
func (r *Repository) Upsert(ctx context.Context, destination, date, reportName string, rows []map[string]interface{}) (*Document, error) {
	doc, err := NewDocument(date, reportName, r.loadSource, rows)
	if err != nil {
		return nil, err
	}
	if err := r.UpsertDocument(ctx, destination, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Exists reports whether a document with the given id is present in the
// destination table. Used by the backfill scanner and the date audit.
func (r *Repository) Exists(ctx context.Context, destination, id string) (bool, error) {
	if err := r.EnsureSchema(destination); err != nil {
		return false, err
	}
	var count int64
	err := r.db.WithContext(ctx).Table(destination).
		Where("id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
