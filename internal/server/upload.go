package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	storagedomain "github.com/operalab/commesse/internal/storage/domain"
)

// UploadVoiceFile accepts a multipart PDF and attaches it to a voice.
// The stored name is the slugified upload name, so uploading the same
// name twice overwrites the earlier object.
func (s *Server) UploadVoiceFile(c *gin.Context) {
	voiceID := strings.TrimSpace(c.PostForm("voiceId"))
	if voiceID == "" {
		AbortWithError(c, storagedomain.ErrMissingVoiceID)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		AbortWithError(c, storagedomain.ErrMissingFile)
		return
	}

	policy := s.policy.Get()
	if header.Size > policy.MaxSizeBytes {
		AbortWithError(c, ErrFileTooLarge)
		return
	}
	if !policy.Allows(header.Header.Get("Content-Type")) {
		AbortWithError(c, storagedomain.ErrNotPDF)
		return
	}

	f, err := header.Open()
	if err != nil {
		AbortWithError(c, storagedomain.Fault("open", err))
		return
	}
	defer f.Close()

	ctx := c.Request.Context()
	stored, err := s.store.Put(ctx, voiceID, header.Filename, f)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if _, err := s.ledgerSvc.RecordVoiceFile(ctx, voiceID, stored.FileURL, stored.FileName); err != nil {
		// no metadata row may mean no stored object either
		_ = s.store.Delete(ctx, voiceID, stored.FileName)
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, stored)
}

type deleteVoiceFileRequest struct {
	VoiceID  string `json:"voiceId"`
	FileName string `json:"file_name"`
}

// DeleteVoiceFile removes a stored attachment. Deleting a file that is
// already gone still reports success.
func (s *Server) DeleteVoiceFile(c *gin.Context) {
	var req deleteVoiceFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if strings.TrimSpace(req.VoiceID) == "" {
		AbortWithError(c, storagedomain.ErrMissingVoiceID)
		return
	}
	if strings.TrimSpace(req.FileName) == "" {
		AbortWithError(c, storagedomain.ErrMissingFile)
		return
	}

	ctx := c.Request.Context()
	if err := s.store.Delete(ctx, req.VoiceID, req.FileName); err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.ledgerSvc.RemoveVoiceFile(ctx, req.VoiceID, req.FileName); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
