package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/operalab/commesse/internal/ledger/domain"
	"github.com/operalab/commesse/pkg/currency"
	"github.com/shopspring/decimal"
)

// amountField accepts a JSON number, a plain numeric string, or a
// localized text like "€ 1.234,56".
type amountField struct {
	decimal.Decimal
}

func (a *amountField) UnmarshalJSON(b []byte) error {
	if err := a.Decimal.UnmarshalJSON(b); err == nil {
		return nil
	}
	var text string
	if err := json.Unmarshal(b, &text); err != nil {
		return err
	}
	a.Decimal = currency.Parse(text)
	return nil
}

type createVoiceRequest struct {
	Type        string      `json:"type"`
	Amount      amountField `json:"amount"`
	Description *string     `json:"description"`
}

func (s *Server) CreateVoice(c *gin.Context) {
	var req createVoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	snap, err := s.ledgerSvc.CreateVoice(c.Request.Context(), c.Param("id"), ledgerdomain.CreateVoiceRequest{
		Type:        ledgerdomain.VoiceType(strings.TrimSpace(req.Type)),
		Amount:      req.Amount.Decimal,
		Description: req.Description,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshotResponse(snap))
}

type updateVoiceRequest struct {
	Type        *string      `json:"type"`
	Amount      *amountField `json:"amount"`
	Description *string      `json:"description"`
}

func (s *Server) UpdateVoice(c *gin.Context) {
	var req updateVoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	domainReq := ledgerdomain.UpdateVoiceRequest{
		Description: req.Description,
	}
	if req.Type != nil {
		t := ledgerdomain.VoiceType(strings.TrimSpace(*req.Type))
		domainReq.Type = &t
	}
	if req.Amount != nil {
		domainReq.Amount = &req.Amount.Decimal
	}

	snap, err := s.ledgerSvc.UpdateVoice(c.Request.Context(), c.Param("id"), domainReq)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshotResponse(snap))
}

func (s *Server) DeleteVoice(c *gin.Context) {
	snap, err := s.ledgerSvc.DeleteVoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshotResponse(snap))
}

func (s *Server) ListVoiceFiles(c *gin.Context) {
	files, err := s.ledgerSvc.ListVoiceFiles(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": files})
}
