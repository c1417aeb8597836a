package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// VoiceType tags a line item as money in or money out.
type VoiceType string

const (
	VoiceTypeIncome  VoiceType = "income"
	VoiceTypeOutcome VoiceType = "outcome"
)

func (t VoiceType) Valid() bool {
	return t == VoiceTypeIncome || t == VoiceTypeOutcome
}

// Commission is the top-level financial record. Income and Outcome are
// derived caches reconciled from the voices below it; they are never
// written directly by callers.
type Commission struct {
	ID                      snowflake.ID      `gorm:"primaryKey" json:"id"`
	Title                   string            `gorm:"not null" json:"title"`
	Slug                    string            `gorm:"index" json:"slug"`
	ProtocolNumberReference string            `gorm:"column:protocol_number_reference" json:"protocol_number_reference"`
	Income                  decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"income"`
	Outcome                 decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"outcome"`
	Metadata                datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	OwnerID                 *snowflake.ID     `gorm:"index" json:"owner_id,omitempty"`
	CreatedAt               time.Time         `gorm:"not null;index" json:"created_at"`
}

// TableName sets the database table name.
func (Commission) TableName() string { return "commissions" }

// Phase groups voices inside a commission. Phases carry no ordering key;
// their order is ascending creation time only.
type Phase struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	CommissionID snowflake.ID `gorm:"not null;index" json:"commission_id"`
	Title        string       `gorm:"not null" json:"title"`
	CreatedAt    time.Time    `gorm:"not null;index" json:"created_at"`
}

// TableName sets the database table name.
func (Phase) TableName() string { return "phases" }

// Voice is a single income or outcome line item.
type Voice struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	PhaseID     snowflake.ID    `gorm:"not null;index" json:"phase_id"`
	Type        VoiceType       `gorm:"type:text;not null" json:"type"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Description *string         `gorm:"type:text" json:"description"`
	CreatedAt   time.Time       `gorm:"not null;index" json:"created_at"`
}

// TableName sets the database table name.
func (Voice) TableName() string { return "voices" }

// VoiceFile is the metadata record of a stored PDF attachment. FileName
// is the slugified form of the uploaded name and is unique within the
// voice's storage namespace; re-uploading the same name overwrites.
type VoiceFile struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	VoiceID   snowflake.ID `gorm:"not null;uniqueIndex:idx_voice_files_voice_name,priority:1" json:"voice_id"`
	FileURL   string       `gorm:"column:file_url;not null" json:"file_url"`
	FileName  string       `gorm:"column:file_name;not null;uniqueIndex:idx_voice_files_voice_name,priority:2" json:"file_name"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (VoiceFile) TableName() string { return "voice_files" }
