package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	documentDatamodel "github.com/frahmantamala/ecodocs/internal/core/datamodel/document"
	"github.com/frahmantamala/ecodocs/internal/document"
)

var errNotMutable = errors.New("document missing or conciliated")

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) document.RepositoryAPI {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, row *documentDatamodel.Document) error {
	return r.db.WithContext(ctx).Omit("Owner").Create(row).Error
}

func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (*documentDatamodel.Document, error) {
	var row documentDatamodel.Document
	err := r.withAssociations(r.db.WithContext(ctx)).
		Where("id = ?", id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *DocumentRepository) List(ctx context.Context, filter document.ListFilter) ([]*documentDatamodel.Document, error) {
	query := r.withAssociations(r.db.WithContext(ctx))
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PaymentStatus != "" {
		query = query.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var rows []*documentDatamodel.Document
	err := query.Order("created_at DESC, id DESC").Find(&rows).Error
	return rows, err
}

func (r *DocumentRepository) Transition(ctx context.Context, id int64, expected, updates map[string]interface{}) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&documentDatamodel.Document{}).
		Where("id = ?", id).
		Where("status <> ?", string(document.StatusConciliado)).
		Where(expected).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CreateAttachment inserts the row while holding the document lock. It reports
// false when the document is gone or was conciliated meanwhile.
func (r *DocumentRepository) CreateAttachment(ctx context.Context, row *documentDatamodel.Attachment) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockMutable(tx, row.DocumentID); err != nil {
			return err
		}
		return tx.Create(row).Error
	})
	if errors.Is(err, errNotMutable) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *DocumentRepository) GetAttachment(ctx context.Context, id int64) (*documentDatamodel.Attachment, error) {
	var row documentDatamodel.Attachment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// Delete removes tags, attachments and the document in one transaction. It
// reports false when the document is gone or was conciliated meanwhile.
func (r *DocumentRepository) Delete(ctx context.Context, id int64) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockMutable(tx, id); err != nil {
			return err
		}

		if err := tx.Where("document_id = ?", id).Delete(&documentDatamodel.Tag{}).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id = ?", id).Delete(&documentDatamodel.Attachment{}).Error; err != nil {
			return err
		}

		res := tx.Where("id = ? AND status <> ?", id, string(document.StatusConciliado)).
			Delete(&documentDatamodel.Document{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errNotMutable
		}
		return nil
	})
	if errors.Is(err, errNotMutable) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// lockMutable takes a row lock on a document that is not conciliated, so a
// concurrent Transition waits for the caller's transaction. SQLite ignores the
// locking clause and serializes writers instead.
func lockMutable(tx *gorm.DB, id int64) error {
	var row documentDatamodel.Document
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ? AND status <> ?", id, string(document.StatusConciliado)).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errNotMutable
	}
	return err
}

func (r *DocumentRepository) withAssociations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Owner").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") })
}
