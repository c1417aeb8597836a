package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/operalab/commesse/internal/ledger/domain"
)

type createPhaseRequest struct {
	Title string `json:"title"`
}

func (s *Server) CreatePhase(c *gin.Context) {
	var req createPhaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	snap, err := s.ledgerSvc.CreatePhase(c.Request.Context(), c.Param("id"), ledgerdomain.CreatePhaseRequest{
		Title: strings.TrimSpace(req.Title),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshotResponse(snap))
}

type updatePhaseRequest struct {
	Title *string `json:"title"`
}

func (s *Server) UpdatePhase(c *gin.Context) {
	var req updatePhaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	snap, err := s.ledgerSvc.UpdatePhase(c.Request.Context(), c.Param("id"), ledgerdomain.UpdatePhaseRequest{
		Title: req.Title,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshotResponse(snap))
}

func (s *Server) DeletePhase(c *gin.Context) {
	snap, err := s.ledgerSvc.DeletePhase(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshotResponse(snap))
}
