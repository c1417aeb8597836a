package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/operalab/commesse/internal/clock"
	"github.com/operalab/commesse/internal/ledger/domain"
	"github.com/operalab/commesse/pkg/currency"
	"github.com/operalab/commesse/pkg/db/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var totalsReconciled = promauto.NewCounter(prometheus.CounterOpts{
	Name: "commesse_totals_reconciliations_total",
	Help: "Commission totals write-backs issued after a reload found drift.",
})

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository

	mu    sync.Mutex
	views map[snowflake.ID]*View
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ledger.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		views: make(map[snowflake.ID]*View),
	}
}

// View returns the state container for a commission, creating an Idle
// one on first access.
func (s *Service) View(commissionID snowflake.ID) *View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[commissionID]
	if !ok {
		v = newView()
		s.views[commissionID] = v
	}
	return v
}

func (s *Service) dropView(commissionID snowflake.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.views, commissionID)
}

func (s *Service) CreateCommission(ctx context.Context, req domain.CreateCommissionRequest) (*domain.Commission, error) {
	title := trimmed(req.Title)
	if title == "" {
		return nil, domain.ErrTitleRequired
	}

	metadata := datatypes.JSONMap(req.Metadata)
	if metadata == nil {
		metadata = datatypes.JSONMap{}
	}

	c := domain.Commission{
		ID:                      s.genID.Generate(),
		Title:                   title,
		Slug:                    slug.Make(title),
		ProtocolNumberReference: trimmed(req.ProtocolNumberReference),
		Income:                  decimal.Zero,
		Outcome:                 decimal.Zero,
		Metadata:                metadata,
		CreatedAt:               s.clock.Now(),
	}

	if err := s.repo.InsertCommission(ctx, s.db, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) ListCommissions(ctx context.Context, req domain.ListCommissionsRequest) (domain.ListCommissionsResponse, error) {
	page := req.Pagination
	if page.PageSize <= 0 {
		page.PageSize = 50
	}

	commissions, err := s.repo.ListCommissions(ctx, s.db, page)
	if err != nil {
		return domain.ListCommissionsResponse{}, err
	}

	resp := domain.ListCommissionsResponse{Commissions: commissions}
	if len(commissions) > page.PageSize {
		resp.Commissions = commissions[:page.PageSize]
		last := resp.Commissions[len(resp.Commissions)-1]
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        last.ID.String(),
			CreatedAt: last.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return domain.ListCommissionsResponse{}, err
		}
		resp.HasMore = true
		resp.NextPageToken = token
	}
	return resp, nil
}

func (s *Service) GetSnapshot(ctx context.Context, commissionID string) (*domain.Snapshot, error) {
	id, err := parseID(commissionID)
	if err != nil {
		return nil, err
	}
	return s.refresh(ctx, id)
}

func (s *Service) UpdateCommission(ctx context.Context, commissionID string, req domain.UpdateCommissionRequest) (*domain.Snapshot, error) {
	id, err := parseID(commissionID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindCommissionByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, domain.ErrNotFound
	}

	updates := map[string]any{}
	if req.Title != nil {
		title := trimmed(*req.Title)
		if title == "" {
			return nil, domain.ErrTitleRequired
		}
		updates["title"] = title
		updates["slug"] = slug.Make(title)
	}
	if req.ProtocolNumberReference != nil {
		updates["protocol_number_reference"] = trimmed(*req.ProtocolNumberReference)
	}

	if len(updates) > 0 {
		if err := s.repo.UpdateCommission(ctx, s.db, id, updates); err != nil {
			return nil, err
		}
	}
	return s.refresh(ctx, id)
}

func (s *Service) DeleteCommission(ctx context.Context, commissionID string) error {
	id, err := parseID(commissionID)
	if err != nil {
		return err
	}

	existing, err := s.repo.FindCommissionByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrNotFound
	}

	if err := s.repo.DeleteCommission(ctx, s.db, id); err != nil {
		return err
	}
	s.dropView(id)
	return nil
}

func (s *Service) CreatePhase(ctx context.Context, commissionID string, req domain.CreatePhaseRequest) (*domain.Snapshot, error) {
	id, err := parseID(commissionID)
	if err != nil {
		return nil, err
	}

	title := trimmed(req.Title)
	if title == "" {
		return nil, domain.ErrTitleRequired
	}

	commission, err := s.repo.FindCommissionByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if commission == nil {
		return nil, domain.ErrNotFound
	}

	p := domain.Phase{
		ID:           s.genID.Generate(),
		CommissionID: id,
		Title:        title,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.repo.InsertPhase(ctx, s.db, &p); err != nil {
		return nil, err
	}
	return s.refresh(ctx, id)
}

func (s *Service) UpdatePhase(ctx context.Context, phaseID string, req domain.UpdatePhaseRequest) (*domain.Snapshot, error) {
	id, err := parseID(phaseID)
	if err != nil {
		return nil, err
	}

	phase, err := s.repo.FindPhaseByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if phase == nil {
		return nil, domain.ErrNotFound
	}

	if req.Title != nil {
		title := trimmed(*req.Title)
		if title == "" {
			return nil, domain.ErrTitleRequired
		}
		if err := s.repo.UpdatePhase(ctx, s.db, id, map[string]any{"title": title}); err != nil {
			return nil, err
		}
	}
	return s.refresh(ctx, phase.CommissionID)
}

func (s *Service) DeletePhase(ctx context.Context, phaseID string) (*domain.Snapshot, error) {
	id, err := parseID(phaseID)
	if err != nil {
		return nil, err
	}

	phase, err := s.repo.FindPhaseByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if phase == nil {
		return nil, domain.ErrNotFound
	}

	if err := s.repo.DeletePhase(ctx, s.db, id); err != nil {
		return nil, err
	}
	return s.refresh(ctx, phase.CommissionID)
}

func (s *Service) CreateVoice(ctx context.Context, phaseID string, req domain.CreateVoiceRequest) (*domain.Snapshot, error) {
	id, err := parseID(phaseID)
	if err != nil {
		return nil, err
	}

	if !req.Type.Valid() {
		return nil, domain.ErrInvalidVoiceType
	}
	if err := currency.ValidateAmount(req.Amount); err != nil {
		return nil, domain.ErrInvalidAmount
	}

	phase, err := s.repo.FindPhaseByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if phase == nil {
		return nil, domain.ErrNotFound
	}

	v := domain.Voice{
		ID:          s.genID.Generate(),
		PhaseID:     id,
		Type:        req.Type,
		Amount:      req.Amount.Round(2),
		Description: req.Description,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.InsertVoice(ctx, s.db, &v); err != nil {
		return nil, err
	}
	return s.refresh(ctx, phase.CommissionID)
}

func (s *Service) UpdateVoice(ctx context.Context, voiceID string, req domain.UpdateVoiceRequest) (*domain.Snapshot, error) {
	id, err := parseID(voiceID)
	if err != nil {
		return nil, err
	}

	voice, err := s.repo.FindVoiceByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if voice == nil {
		return nil, domain.ErrNotFound
	}

	updates := map[string]any{}
	if req.Type != nil {
		if !req.Type.Valid() {
			return nil, domain.ErrInvalidVoiceType
		}
		updates["type"] = *req.Type
	}
	if req.Amount != nil {
		if err := currency.ValidateAmount(*req.Amount); err != nil {
			return nil, domain.ErrInvalidAmount
		}
		updates["amount"] = req.Amount.Round(2)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}

	if len(updates) > 0 {
		if err := s.repo.UpdateVoice(ctx, s.db, id, updates); err != nil {
			return nil, err
		}
	}

	phase, err := s.repo.FindPhaseByID(ctx, s.db, voice.PhaseID)
	if err != nil {
		return nil, err
	}
	if phase == nil {
		return nil, domain.ErrNotFound
	}
	return s.refresh(ctx, phase.CommissionID)
}

func (s *Service) DeleteVoice(ctx context.Context, voiceID string) (*domain.Snapshot, error) {
	id, err := parseID(voiceID)
	if err != nil {
		return nil, err
	}

	voice, err := s.repo.FindVoiceByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if voice == nil {
		return nil, domain.ErrNotFound
	}

	phase, err := s.repo.FindPhaseByID(ctx, s.db, voice.PhaseID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.DeleteVoice(ctx, s.db, id); err != nil {
		return nil, err
	}

	if phase == nil {
		// orphaned voice, nothing to refresh
		return nil, domain.ErrNotFound
	}
	return s.refresh(ctx, phase.CommissionID)
}

func (s *Service) RecordVoiceFile(ctx context.Context, voiceID, fileURL, fileName string) (*domain.VoiceFile, error) {
	id, err := parseID(voiceID)
	if err != nil {
		return nil, err
	}
	if trimmed(fileName) == "" {
		return nil, domain.ErrFileNameRequired
	}

	voice, err := s.repo.FindVoiceByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if voice == nil {
		return nil, domain.ErrNotFound
	}

	f := domain.VoiceFile{
		ID:        s.genID.Generate(),
		VoiceID:   id,
		FileURL:   fileURL,
		FileName:  fileName,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.UpsertVoiceFile(ctx, s.db, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *Service) RemoveVoiceFile(ctx context.Context, voiceID, fileName string) error {
	id, err := parseID(voiceID)
	if err != nil {
		return err
	}
	if trimmed(fileName) == "" {
		return domain.ErrFileNameRequired
	}
	return s.repo.DeleteVoiceFileByName(ctx, s.db, id, fileName)
}

func (s *Service) ListVoiceFiles(ctx context.Context, voiceID string) ([]domain.VoiceFile, error) {
	id, err := parseID(voiceID)
	if err != nil {
		return nil, err
	}

	voice, err := s.repo.FindVoiceByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if voice == nil {
		return nil, domain.ErrNotFound
	}
	return s.repo.ListVoiceFilesByVoiceIDs(ctx, s.db, []snowflake.ID{id})
}

// refresh drives the view through Loading to Ready or Failed around a
// full reload of the commission hierarchy.
func (s *Service) refresh(ctx context.Context, commissionID snowflake.ID) (*domain.Snapshot, error) {
	view := s.View(commissionID)
	view.setLoading()

	snap, err := s.load(ctx, commissionID)
	if err != nil {
		view.setFailed(err)
		return nil, err
	}

	view.setReady(snap)
	return snap, nil
}

// load reads the hierarchy in a strict chain (commission, phases,
// voices, files), recomputes totals, and writes the cached totals back
// only when they drifted. There is no lock between the read and the
// write-back: two overlapping mutators can race, each landing totals
// computed from its own snapshot. The last write wins.
func (s *Service) load(ctx context.Context, commissionID snowflake.ID) (*domain.Snapshot, error) {
	commission, err := s.repo.FindCommissionByID(ctx, s.db, commissionID)
	if err != nil {
		return nil, err
	}
	if commission == nil {
		return nil, domain.ErrNotFound
	}

	phases, err := s.repo.ListPhases(ctx, s.db, commissionID)
	if err != nil {
		return nil, err
	}

	phaseIDs := make([]snowflake.ID, len(phases))
	for i, p := range phases {
		phaseIDs[i] = p.ID
	}

	voices, err := s.repo.ListVoicesByPhaseIDs(ctx, s.db, phaseIDs)
	if err != nil {
		return nil, err
	}

	voiceIDs := make([]snowflake.ID, len(voices))
	for i, v := range voices {
		voiceIDs[i] = v.ID
	}

	files, err := s.repo.ListVoiceFilesByVoiceIDs(ctx, s.db, voiceIDs)
	if err != nil {
		return nil, err
	}

	totals := domain.Aggregate(voices)
	if !totals.Income.Equal(commission.Income) || !totals.Outcome.Equal(commission.Outcome) {
		if err := s.repo.UpdateCommissionTotals(ctx, s.db, commissionID, totals.Income, totals.Outcome); err != nil {
			return nil, err
		}
		totalsReconciled.Inc()
		s.log.Debug("totals reconciled",
			zap.String("commission_id", commissionID.String()),
			zap.String("income", totals.Income.String()),
			zap.String("outcome", totals.Outcome.String()),
		)
		commission.Income = totals.Income
		commission.Outcome = totals.Outcome
	}

	snap := &domain.Snapshot{
		Commission: *commission,
		Phases:     make([]domain.PhaseView, 0, len(phases)),
		Files:      make(map[string][]domain.VoiceFile),
		Totals:     totals,
	}

	voicesByPhase := make(map[snowflake.ID][]domain.Voice)
	for _, v := range voices {
		voicesByPhase[v.PhaseID] = append(voicesByPhase[v.PhaseID], v)
	}
	for _, p := range phases {
		snap.Phases = append(snap.Phases, domain.PhaseView{
			Phase:  p,
			Voices: voicesByPhase[p.ID],
		})
	}
	for _, f := range files {
		key := f.VoiceID.String()
		snap.Files[key] = append(snap.Files[key], f)
	}
	return snap, nil
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(trimmed(raw))
	if err != nil {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
