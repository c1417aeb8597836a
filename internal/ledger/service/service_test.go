package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/operalab/commesse/internal/clock"
	"github.com/operalab/commesse/internal/ledger/domain"
	"github.com/operalab/commesse/internal/ledger/repository"
	"github.com/operalab/commesse/internal/ledger/service"
	"github.com/operalab/commesse/pkg/db"
	"github.com/operalab/commesse/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// spyRepo wraps the real repository to observe totals write-backs and
// inject read failures.
type spyRepo struct {
	domain.Repository
	totalsWrites  int
	listPhasesErr error
}

func (r *spyRepo) UpdateCommissionTotals(ctx context.Context, gdb *gorm.DB, id snowflake.ID, income, outcome decimal.Decimal) error {
	r.totalsWrites++
	return r.Repository.UpdateCommissionTotals(ctx, gdb, id, income, outcome)
}

func (r *spyRepo) ListPhases(ctx context.Context, gdb *gorm.DB, commissionID snowflake.ID) ([]domain.Phase, error) {
	if r.listPhasesErr != nil {
		return nil, r.listPhasesErr
	}
	return r.Repository.ListPhases(ctx, gdb, commissionID)
}

type fixture struct {
	svc   domain.Service
	impl  *service.Service
	db    *gorm.DB
	clock *clock.FakeClock
	repo  *spyRepo
}

func setup(t *testing.T) *fixture {
	t.Helper()

	gdb, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&domain.Commission{},
		&domain.Phase{},
		&domain.Voice{},
		&domain.VoiceFile{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	repo := &spyRepo{Repository: repository.Provide()}

	svc := service.New(service.Params{
		DB:    gdb,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  repo,
	})

	return &fixture{
		svc:   svc,
		impl:  svc.(*service.Service),
		db:    gdb,
		clock: clk,
		repo:  repo,
	}
}

func (f *fixture) createCommission(t *testing.T, title string) *domain.Commission {
	t.Helper()
	c, err := f.svc.CreateCommission(context.Background(), domain.CreateCommissionRequest{Title: title})
	require.NoError(t, err)
	return c
}

func strPtr(s string) *string { return &s }

func TestCreateCommission(t *testing.T) {
	f := setup(t)

	c := f.createCommission(t, "  Restauro Teatro  ")
	assert.Equal(t, "Restauro Teatro", c.Title)
	assert.Equal(t, "restauro-teatro", c.Slug)
	assert.True(t, c.Income.IsZero())
	assert.True(t, c.Outcome.IsZero())
	assert.Equal(t, f.clock.Now(), c.CreatedAt)

	_, err := f.svc.CreateCommission(context.Background(), domain.CreateCommissionRequest{Title: "   "})
	assert.ErrorIs(t, err, domain.ErrTitleRequired)
}

func TestPhaseVoiceLifecycle(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	c := f.createCommission(t, "Villa Adriana")

	snap, err := f.svc.CreatePhase(ctx, c.ID.String(), domain.CreatePhaseRequest{Title: "Fase 1"})
	require.NoError(t, err)
	require.Len(t, snap.Phases, 1)
	phase := snap.Phases[0].Phase

	f.clock.Advance(time.Minute)
	snap, err = f.svc.CreateVoice(ctx, phase.ID.String(), domain.CreateVoiceRequest{
		Type:   domain.VoiceTypeIncome,
		Amount: decimal.RequireFromString("100"),
	})
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	snap, err = f.svc.CreateVoice(ctx, phase.ID.String(), domain.CreateVoiceRequest{
		Type:        domain.VoiceTypeOutcome,
		Amount:      decimal.RequireFromString("40"),
		Description: strPtr("materiali"),
	})
	require.NoError(t, err)

	assert.True(t, snap.Totals.Income.Equal(decimal.RequireFromString("100")))
	assert.True(t, snap.Totals.Outcome.Equal(decimal.RequireFromString("40")))
	assert.True(t, snap.Totals.Net.Equal(decimal.RequireFromString("60")))

	// cached totals written back to the commission row
	assert.True(t, snap.Commission.Income.Equal(snap.Totals.Income))
	assert.True(t, snap.Commission.Outcome.Equal(snap.Totals.Outcome))

	// voices listed in creation order
	require.Len(t, snap.Phases, 1)
	voices := snap.Phases[0].Voices
	require.Len(t, voices, 2)
	assert.Equal(t, domain.VoiceTypeIncome, voices[0].Type)
	assert.Equal(t, domain.VoiceTypeOutcome, voices[1].Type)

	view := f.impl.View(c.ID)
	assert.Equal(t, service.StateReady, view.State())
}

func TestReloadSkipsWriteBackWhenClean(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	c := f.createCommission(t, "Palazzo Ducale")
	snap, err := f.svc.CreatePhase(ctx, c.ID.String(), domain.CreatePhaseRequest{Title: "Fase 1"})
	require.NoError(t, err)

	// empty hierarchy matches the zero cache, no write-back yet
	assert.Equal(t, 0, f.repo.totalsWrites)

	_, err = f.svc.CreateVoice(ctx, snap.Phases[0].Phase.ID.String(), domain.CreateVoiceRequest{
		Type:   domain.VoiceTypeIncome,
		Amount: decimal.RequireFromString("12.50"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.repo.totalsWrites)

	// a clean reload leaves the cache alone
	_, err = f.svc.GetSnapshot(ctx, c.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 1, f.repo.totalsWrites)
}

func TestDeletePhaseCascades(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	c := f.createCommission(t, "Duomo")
	snap, err := f.svc.CreatePhase(ctx, c.ID.String(), domain.CreatePhaseRequest{Title: "Scavo"})
	require.NoError(t, err)
	phase := snap.Phases[0].Phase

	snap, err = f.svc.CreateVoice(ctx, phase.ID.String(), domain.CreateVoiceRequest{
		Type:   domain.VoiceTypeIncome,
		Amount: decimal.RequireFromString("200"),
	})
	require.NoError(t, err)
	voice := snap.Phases[0].Voices[0]

	_, err = f.svc.RecordVoiceFile(ctx, voice.ID.String(), "/files/voices/x/fattura.pdf", "fattura.pdf")
	require.NoError(t, err)

	snap, err = f.svc.DeletePhase(ctx, phase.ID.String())
	require.NoError(t, err)
	assert.Empty(t, snap.Phases)
	assert.True(t, snap.Totals.Income.IsZero())
	assert.True(t, snap.Commission.Income.IsZero())

	var fileCount int64
	require.NoError(t, f.db.Model(&domain.VoiceFile{}).Count(&fileCount).Error)
	assert.Zero(t, fileCount)
}

func TestUpdateVoiceRecomputesTotals(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	c := f.createCommission(t, "Ponte Vecchio")
	snap, err := f.svc.CreatePhase(ctx, c.ID.String(), domain.CreatePhaseRequest{Title: "Fase 1"})
	require.NoError(t, err)

	snap, err = f.svc.CreateVoice(ctx, snap.Phases[0].Phase.ID.String(), domain.CreateVoiceRequest{
		Type:   domain.VoiceTypeIncome,
		Amount: decimal.RequireFromString("100"),
	})
	require.NoError(t, err)
	voice := snap.Phases[0].Voices[0]

	outcome := domain.VoiceTypeOutcome
	amount := decimal.RequireFromString("55.55")
	snap, err = f.svc.UpdateVoice(ctx, voice.ID.String(), domain.UpdateVoiceRequest{
		Type:   &outcome,
		Amount: &amount,
	})
	require.NoError(t, err)
	assert.True(t, snap.Totals.Income.IsZero())
	assert.True(t, snap.Totals.Outcome.Equal(amount))
}

func TestValidation(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.svc.GetSnapshot(ctx, "not-a-snowflake")
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = f.svc.GetSnapshot(ctx, "123456789")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	c := f.createCommission(t, "Validazione")
	snap, err := f.svc.CreatePhase(ctx, c.ID.String(), domain.CreatePhaseRequest{Title: "Fase 1"})
	require.NoError(t, err)
	phaseID := snap.Phases[0].Phase.ID.String()

	_, err = f.svc.CreateVoice(ctx, phaseID, domain.CreateVoiceRequest{
		Type:   domain.VoiceType("transfer"),
		Amount: decimal.RequireFromString("10"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidVoiceType)

	_, err = f.svc.CreateVoice(ctx, phaseID, domain.CreateVoiceRequest{
		Type:   domain.VoiceTypeIncome,
		Amount: decimal.RequireFromString("-1"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.svc.CreateVoice(ctx, phaseID, domain.CreateVoiceRequest{
		Type:   domain.VoiceTypeIncome,
		Amount: decimal.RequireFromString("1000000000"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.svc.CreatePhase(ctx, c.ID.String(), domain.CreatePhaseRequest{Title: ""})
	assert.ErrorIs(t, err, domain.ErrTitleRequired)
}

func TestVoiceFileUpsert(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	c := f.createCommission(t, "Archivio")
	snap, err := f.svc.CreatePhase(ctx, c.ID.String(), domain.CreatePhaseRequest{Title: "Fase 1"})
	require.NoError(t, err)
	snap, err = f.svc.CreateVoice(ctx, snap.Phases[0].Phase.ID.String(), domain.CreateVoiceRequest{
		Type:   domain.VoiceTypeIncome,
		Amount: decimal.RequireFromString("1"),
	})
	require.NoError(t, err)
	voiceID := snap.Phases[0].Voices[0].ID.String()

	_, err = f.svc.RecordVoiceFile(ctx, voiceID, "/files/voices/1/contratto.pdf", "contratto.pdf")
	require.NoError(t, err)

	// same name again replaces the record instead of duplicating it
	_, err = f.svc.RecordVoiceFile(ctx, voiceID, "/files/voices/1/contratto.pdf?v=2", "contratto.pdf")
	require.NoError(t, err)

	files, err := f.svc.ListVoiceFiles(ctx, voiceID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "/files/voices/1/contratto.pdf?v=2", files[0].FileURL)

	// removal is idempotent
	require.NoError(t, f.svc.RemoveVoiceFile(ctx, voiceID, "contratto.pdf"))
	require.NoError(t, f.svc.RemoveVoiceFile(ctx, voiceID, "contratto.pdf"))

	files, err = f.svc.ListVoiceFiles(ctx, voiceID)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestFailedReloadMarksView(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	c := f.createCommission(t, "Guasto")
	f.repo.listPhasesErr = gorm.ErrInvalidDB

	_, err := f.svc.GetSnapshot(ctx, c.ID.String())
	require.Error(t, err)

	view := f.impl.View(c.ID)
	assert.Equal(t, service.StateFailed, view.State())
	assert.NotEmpty(t, view.Err())

	// a later successful reload recovers
	f.repo.listPhasesErr = nil
	_, err = f.svc.GetSnapshot(ctx, c.ID.String())
	require.NoError(t, err)
	assert.Equal(t, service.StateReady, view.State())
}

func TestSubscribeReceivesFreshSnapshots(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	c := f.createCommission(t, "Osservatorio")
	ch, cancel := f.impl.View(c.ID).Subscribe()
	defer cancel()

	snap, err := f.svc.CreatePhase(ctx, c.ID.String(), domain.CreatePhaseRequest{Title: "Fase 1"})
	require.NoError(t, err)

	select {
	case got := <-ch:
		assert.Equal(t, snap.Commission.ID, got.Commission.ID)
		require.Len(t, got.Phases, 1)
	default:
		t.Fatal("expected a published snapshot")
	}

	// a slow subscriber sees only the latest value
	_, err = f.svc.CreateVoice(ctx, snap.Phases[0].Phase.ID.String(), domain.CreateVoiceRequest{
		Type:   domain.VoiceTypeIncome,
		Amount: decimal.RequireFromString("5"),
	})
	require.NoError(t, err)
	_, err = f.svc.CreateVoice(ctx, snap.Phases[0].Phase.ID.String(), domain.CreateVoiceRequest{
		Type:   domain.VoiceTypeIncome,
		Amount: decimal.RequireFromString("7"),
	})
	require.NoError(t, err)

	select {
	case got := <-ch:
		assert.True(t, got.Totals.Income.Equal(decimal.RequireFromString("12")))
	default:
		t.Fatal("expected a published snapshot")
	}
}

func TestListCommissionsPagination(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	for _, title := range []string{"Alpha", "Beta", "Gamma"} {
		f.createCommission(t, title)
		f.clock.Advance(time.Second)
	}

	resp, err := f.svc.ListCommissions(ctx, domain.ListCommissionsRequest{
		Pagination: pagination.Pagination{PageSize: 2},
	})
	require.NoError(t, err)
	require.Len(t, resp.Commissions, 2)
	assert.True(t, resp.HasMore)
	require.NotEmpty(t, resp.NextPageToken)

	// newest first
	assert.Equal(t, "Gamma", resp.Commissions[0].Title)
	assert.Equal(t, "Beta", resp.Commissions[1].Title)

	resp, err = f.svc.ListCommissions(ctx, domain.ListCommissionsRequest{
		Pagination: pagination.Pagination{PageSize: 2, PageToken: resp.NextPageToken},
	})
	require.NoError(t, err)
	require.Len(t, resp.Commissions, 1)
	assert.Equal(t, "Alpha", resp.Commissions[0].Title)
	assert.False(t, resp.HasMore)
}

func TestDeleteCommissionCascades(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	c := f.createCommission(t, "Demolizione")
	snap, err := f.svc.CreatePhase(ctx, c.ID.String(), domain.CreatePhaseRequest{Title: "Fase 1"})
	require.NoError(t, err)
	_, err = f.svc.CreateVoice(ctx, snap.Phases[0].Phase.ID.String(), domain.CreateVoiceRequest{
		Type:   domain.VoiceTypeIncome,
		Amount: decimal.RequireFromString("10"),
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteCommission(ctx, c.ID.String()))

	_, err = f.svc.GetSnapshot(ctx, c.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	for _, model := range []any{&domain.Phase{}, &domain.Voice{}} {
		var count int64
		require.NoError(t, f.db.Model(model).Count(&count).Error)
		assert.Zero(t, count)
	}

	// deleting again reports not found
	assert.ErrorIs(t, f.svc.DeleteCommission(ctx, c.ID.String()), domain.ErrNotFound)
}
