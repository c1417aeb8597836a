package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/operalab/commesse/internal/ledger/domain"
	pkgdb "github.com/operalab/commesse/pkg/db"
	"github.com/operalab/commesse/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertCommission(ctx context.Context, db *gorm.DB, c *domain.Commission) error {
	return db.WithContext(ctx).Create(c).Error
}

func (r *repo) FindCommissionByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Commission, error) {
	var c domain.Commission
	err := db.WithContext(ctx).First(&c, "id = ?", id).Error
	if err != nil {
		if pkgdb.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *repo) ListCommissions(ctx context.Context, db *gorm.DB, page pagination.Pagination) ([]*domain.Commission, error) {
	stmt := db.WithContext(ctx).Model(&domain.Commission{})

	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			createdAt, createdAt, cursor.ID,
		)
	}

	limit := page.PageSize
	if limit <= 0 {
		limit = 50
	}

	var commissions []*domain.Commission
	err := stmt.
		Order("created_at desc, id desc").
		Limit(limit + 1).
		Find(&commissions).Error
	if err != nil {
		return nil, err
	}
	return commissions, nil
}

func (r *repo) UpdateCommission(ctx context.Context, db *gorm.DB, id snowflake.ID, updates map[string]any) error {
	return db.WithContext(ctx).
		Model(&domain.Commission{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repo) UpdateCommissionTotals(ctx context.Context, db *gorm.DB, id snowflake.ID, income, outcome decimal.Decimal) error {
	return db.WithContext(ctx).
		Model(&domain.Commission{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"income":  income,
			"outcome": outcome,
		}).Error
}

// DeleteCommission removes the commission and everything below it in a
// single transaction: voice files, voices, phases, then the commission.
func (r *repo) DeleteCommission(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var phaseIDs []snowflake.ID
		if err := tx.Model(&domain.Phase{}).
			Where("commission_id = ?", id).
			Pluck("id", &phaseIDs).Error; err != nil {
			return err
		}

		if len(phaseIDs) > 0 {
			var voiceIDs []snowflake.ID
			if err := tx.Model(&domain.Voice{}).
				Where("phase_id IN ?", phaseIDs).
				Pluck("id", &voiceIDs).Error; err != nil {
				return err
			}
			if len(voiceIDs) > 0 {
				if err := tx.Where("voice_id IN ?", voiceIDs).
					Delete(&domain.VoiceFile{}).Error; err != nil {
					return err
				}
				if err := tx.Where("id IN ?", voiceIDs).
					Delete(&domain.Voice{}).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("id IN ?", phaseIDs).
				Delete(&domain.Phase{}).Error; err != nil {
				return err
			}
		}

		return tx.Where("id = ?", id).Delete(&domain.Commission{}).Error
	})
}

func (r *repo) InsertPhase(ctx context.Context, db *gorm.DB, p *domain.Phase) error {
	return db.WithContext(ctx).Create(p).Error
}

func (r *repo) FindPhaseByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Phase, error) {
	var p domain.Phase
	err := db.WithContext(ctx).First(&p, "id = ?", id).Error
	if err != nil {
		if pkgdb.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *repo) ListPhases(ctx context.Context, db *gorm.DB, commissionID snowflake.ID) ([]domain.Phase, error) {
	var phases []domain.Phase
	err := db.WithContext(ctx).
		Where("commission_id = ?", commissionID).
		Order("created_at asc, id asc").
		Find(&phases).Error
	return phases, err
}

func (r *repo) UpdatePhase(ctx context.Context, db *gorm.DB, id snowflake.ID, updates map[string]any) error {
	return db.WithContext(ctx).
		Model(&domain.Phase{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// DeletePhase removes the phase with its voices and their files.
func (r *repo) DeletePhase(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var voiceIDs []snowflake.ID
		if err := tx.Model(&domain.Voice{}).
			Where("phase_id = ?", id).
			Pluck("id", &voiceIDs).Error; err != nil {
			return err
		}
		if len(voiceIDs) > 0 {
			if err := tx.Where("voice_id IN ?", voiceIDs).
				Delete(&domain.VoiceFile{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", voiceIDs).
				Delete(&domain.Voice{}).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", id).Delete(&domain.Phase{}).Error
	})
}

func (r *repo) InsertVoice(ctx context.Context, db *gorm.DB, v *domain.Voice) error {
	return db.WithContext(ctx).Create(v).Error
}

func (r *repo) FindVoiceByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Voice, error) {
	var v domain.Voice
	err := db.WithContext(ctx).First(&v, "id = ?", id).Error
	if err != nil {
		if pkgdb.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func (r *repo) ListVoicesByPhaseIDs(ctx context.Context, db *gorm.DB, phaseIDs []snowflake.ID) ([]domain.Voice, error) {
	if len(phaseIDs) == 0 {
		return nil, nil
	}
	var voices []domain.Voice
	err := db.WithContext(ctx).
		Where("phase_id IN ?", phaseIDs).
		Order("created_at asc, id asc").
		Find(&voices).Error
	return voices, err
}

func (r *repo) UpdateVoice(ctx context.Context, db *gorm.DB, id snowflake.ID, updates map[string]any) error {
	return db.WithContext(ctx).
		Model(&domain.Voice{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// DeleteVoice removes the voice and its file metadata records. The
// stored attachment objects are the storage service's concern and are
// deleted through it, not here.
func (r *repo) DeleteVoice(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("voice_id = ?", id).
			Delete(&domain.VoiceFile{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&domain.Voice{}).Error
	})
}

// UpsertVoiceFile inserts the metadata record, or refreshes file_url and
// created_at when the voice already has a file with that name. Last
// write wins, mirroring the storage overwrite semantics.
func (r *repo) UpsertVoiceFile(ctx context.Context, db *gorm.DB, f *domain.VoiceFile) error {
	existing, err := r.FindVoiceFile(ctx, db, f.VoiceID, f.FileName)
	if err != nil {
		return err
	}
	if existing == nil {
		err := db.WithContext(ctx).Create(f).Error
		if err == nil || !pkgdb.IsDuplicateKeyErr(err) {
			return err
		}
		// lost the race on the unique (voice_id, file_name) index;
		// fall through to the update path
		existing, err = r.FindVoiceFile(ctx, db, f.VoiceID, f.FileName)
		if err != nil {
			return err
		}
		if existing == nil {
			return gorm.ErrRecordNotFound
		}
	}

	f.ID = existing.ID
	return db.WithContext(ctx).
		Model(&domain.VoiceFile{}).
		Where("id = ?", existing.ID).
		Updates(map[string]any{
			"file_url":   f.FileURL,
			"created_at": f.CreatedAt,
		}).Error
}

func (r *repo) FindVoiceFile(ctx context.Context, db *gorm.DB, voiceID snowflake.ID, fileName string) (*domain.VoiceFile, error) {
	var f domain.VoiceFile
	err := db.WithContext(ctx).
		First(&f, "voice_id = ? AND file_name = ?", voiceID, fileName).Error
	if err != nil {
		if pkgdb.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

func (r *repo) ListVoiceFilesByVoiceIDs(ctx context.Context, db *gorm.DB, voiceIDs []snowflake.ID) ([]domain.VoiceFile, error) {
	if len(voiceIDs) == 0 {
		return nil, nil
	}
	var files []domain.VoiceFile
	err := db.WithContext(ctx).
		Where("voice_id IN ?", voiceIDs).
		Order("created_at asc, id asc").
		Find(&files).Error
	return files, err
}

// DeleteVoiceFileByName is idempotent: deleting a record that does not
// exist is not an error.
func (r *repo) DeleteVoiceFileByName(ctx context.Context, db *gorm.DB, voiceID snowflake.ID, fileName string) error {
	return db.WithContext(ctx).
		Where("voice_id = ? AND file_name = ?", voiceID, fileName).
		Delete(&domain.VoiceFile{}).Error
}
