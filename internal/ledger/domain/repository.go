package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/operalab/commesse/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository is the persisted-record access layer for the ledger
// hierarchy. Reads that return collections order by creation time
// ascending; deletes cascade to owned records. Callers reload the full
// hierarchy after every mutation instead of patching locally.
type Repository interface {
	InsertCommission(ctx context.Context, db *gorm.DB, c *Commission) error
	FindCommissionByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Commission, error)
	ListCommissions(ctx context.Context, db *gorm.DB, page pagination.Pagination) ([]*Commission, error)
	UpdateCommission(ctx context.Context, db *gorm.DB, id snowflake.ID, updates map[string]any) error
	UpdateCommissionTotals(ctx context.Context, db *gorm.DB, id snowflake.ID, income, outcome decimal.Decimal) error
	DeleteCommission(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	InsertPhase(ctx context.Context, db *gorm.DB, p *Phase) error
	FindPhaseByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Phase, error)
	ListPhases(ctx context.Context, db *gorm.DB, commissionID snowflake.ID) ([]Phase, error)
	UpdatePhase(ctx context.Context, db *gorm.DB, id snowflake.ID, updates map[string]any) error
	DeletePhase(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	InsertVoice(ctx context.Context, db *gorm.DB, v *Voice) error
	FindVoiceByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Voice, error)
	ListVoicesByPhaseIDs(ctx context.Context, db *gorm.DB, phaseIDs []snowflake.ID) ([]Voice, error)
	UpdateVoice(ctx context.Context, db *gorm.DB, id snowflake.ID, updates map[string]any) error
	DeleteVoice(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	UpsertVoiceFile(ctx context.Context, db *gorm.DB, f *VoiceFile) error
	FindVoiceFile(ctx context.Context, db *gorm.DB, voiceID snowflake.ID, fileName string) (*VoiceFile, error)
	ListVoiceFilesByVoiceIDs(ctx context.Context, db *gorm.DB, voiceIDs []snowflake.ID) ([]VoiceFile, error)
	DeleteVoiceFileByName(ctx context.Context, db *gorm.DB, voiceID snowflake.ID, fileName string) error
}
