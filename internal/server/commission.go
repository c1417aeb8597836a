package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/operalab/commesse/internal/ledger/domain"
	"github.com/operalab/commesse/pkg/currency"
	"github.com/operalab/commesse/pkg/db/pagination"
)

type createCommissionRequest struct {
	Title                   string         `json:"title"`
	ProtocolNumberReference string         `json:"protocol_number_reference"`
	Metadata                map[string]any `json:"metadata"`
}

func (s *Server) CreateCommission(c *gin.Context) {
	var req createCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.ledgerSvc.CreateCommission(c.Request.Context(), ledgerdomain.CreateCommissionRequest{
		Title:                   strings.TrimSpace(req.Title),
		ProtocolNumberReference: strings.TrimSpace(req.ProtocolNumberReference),
		Metadata:                req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCommissions(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.ledgerSvc.ListCommissions(c.Request.Context(), ledgerdomain.ListCommissionsRequest{
		Pagination: page,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCommission(c *gin.Context) {
	snap, err := s.ledgerSvc.GetSnapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshotResponse(snap))
}

type updateCommissionRequest struct {
	Title                   *string `json:"title"`
	ProtocolNumberReference *string `json:"protocol_number_reference"`
}

func (s *Server) UpdateCommission(c *gin.Context) {
	var req updateCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	snap, err := s.ledgerSvc.UpdateCommission(c.Request.Context(), c.Param("id"), ledgerdomain.UpdateCommissionRequest{
		Title:                   req.Title,
		ProtocolNumberReference: req.ProtocolNumberReference,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshotResponse(snap))
}

func (s *Server) DeleteCommission(c *gin.Context) {
	if err := s.ledgerSvc.DeleteCommission(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// snapshotResponse decorates a snapshot with display-formatted totals.
func snapshotResponse(snap *ledgerdomain.Snapshot) gin.H {
	return gin.H{
		"data": snap,
		"totals_display": gin.H{
			"income":  currency.Format(snap.Totals.Income),
			"outcome": currency.Format(snap.Totals.Outcome),
			"net":     currency.Format(snap.Totals.Net),
		},
	}
}
