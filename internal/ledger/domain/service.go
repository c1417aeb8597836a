package domain

import (
	"context"
	"errors"

	"github.com/operalab/commesse/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

type CreateCommissionRequest struct {
	Title                   string
	ProtocolNumberReference string
	Metadata                map[string]any
}

type UpdateCommissionRequest struct {
	Title                   *string
	ProtocolNumberReference *string
}

type ListCommissionsRequest struct {
	pagination.Pagination
}

type ListCommissionsResponse struct {
	pagination.PageInfo
	Commissions []*Commission `json:"commissions"`
}

type CreatePhaseRequest struct {
	Title string
}

type UpdatePhaseRequest struct {
	Title *string
}

type CreateVoiceRequest struct {
	Type        VoiceType
	Amount      decimal.Decimal
	Description *string
}

type UpdateVoiceRequest struct {
	Type        *VoiceType
	Amount      *decimal.Decimal
	Description *string
}

// PhaseView is a phase with its voices in creation order.
type PhaseView struct {
	Phase  Phase   `json:"phase"`
	Voices []Voice `json:"voices"`
}

// Snapshot is the full hierarchy of one commission as read in a single
// reload pass, with totals already reconciled. Files are keyed by the
// string form of the owning voice ID.
type Snapshot struct {
	Commission Commission             `json:"commission"`
	Phases     []PhaseView            `json:"phases"`
	Files      map[string][]VoiceFile `json:"files"`
	Totals     Totals                 `json:"totals"`
}

// Service orchestrates ledger mutations. Every phase or voice mutation
// performs the repository write, reloads the whole hierarchy, reconciles
// the commission's cached totals, and returns the fresh snapshot.
type Service interface {
	CreateCommission(ctx context.Context, req CreateCommissionRequest) (*Commission, error)
	ListCommissions(ctx context.Context, req ListCommissionsRequest) (ListCommissionsResponse, error)
	GetSnapshot(ctx context.Context, commissionID string) (*Snapshot, error)
	UpdateCommission(ctx context.Context, commissionID string, req UpdateCommissionRequest) (*Snapshot, error)
	DeleteCommission(ctx context.Context, commissionID string) error

	CreatePhase(ctx context.Context, commissionID string, req CreatePhaseRequest) (*Snapshot, error)
	UpdatePhase(ctx context.Context, phaseID string, req UpdatePhaseRequest) (*Snapshot, error)
	DeletePhase(ctx context.Context, phaseID string) (*Snapshot, error)

	CreateVoice(ctx context.Context, phaseID string, req CreateVoiceRequest) (*Snapshot, error)
	UpdateVoice(ctx context.Context, voiceID string, req UpdateVoiceRequest) (*Snapshot, error)
	DeleteVoice(ctx context.Context, voiceID string) (*Snapshot, error)

	RecordVoiceFile(ctx context.Context, voiceID, fileURL, fileName string) (*VoiceFile, error)
	RemoveVoiceFile(ctx context.Context, voiceID, fileName string) error
	ListVoiceFiles(ctx context.Context, voiceID string) ([]VoiceFile, error)
}

var (
	ErrNotFound         = errors.New("not_found")
	ErrInvalidID        = errors.New("invalid_id")
	ErrTitleRequired    = errors.New("title_required")
	ErrInvalidVoiceType = errors.New("invalid_voice_type")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrFileNameRequired = errors.New("file_name_required")
)
