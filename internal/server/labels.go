package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/cardscan/internal/common"
)

type labelRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (s *Server) handleListLabels(c *gin.Context) {
	list, err := s.deps.Labels.ListLabels(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"labels": nonNil(list)})
}

func (s *Server) handleCreateLabel(c *gin.Context) {
	var req labelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, common.Invalidf("invalid request body: %v", err))
		return
	}
	l, err := s.deps.Labels.CreateLabel(c.Request.Context(), req.Name, req.Color)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, l)
}

func (s *Server) handleGetLabel(c *gin.Context) {
	l, err := s.deps.Labels.GetLabel(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (s *Server) handleUpdateLabel(c *gin.Context) {
	var req labelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, common.Invalidf("invalid request body: %v", err))
		return
	}
	ok, err := s.deps.Labels.UpdateLabel(c.Request.Context(), c.Param("id"), req.Name, req.Color)
	if err != nil {
		handleError(c, err)
		return
	}
	if !ok {
		notFound(c, "label")
		return
	}
	l, err := s.deps.Labels.GetLabel(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (s *Server) handleDeleteLabel(c *gin.Context) {
	touched, found, err := s.deps.Labels.DeleteLabel(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	if !found {
		notFound(c, "label")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true, "cards_unlabeled": touched})
}

func (s *Server) handleCardsByLabel(c *gin.Context) {
	list, err := s.deps.Labels.CardsByLabel(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cards": nonNil(list)})
}

func (s *Server) handleAssignLabel(c *gin.Context) {
	id, err := cardID(c)
	if err != nil {
		handleError(c, err)
		return
	}
	var req struct {
		LabelID   string `json:"label_id"`
		LabelName string `json:"label_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.LabelID == "" {
		handleError(c, common.Invalidf("label_id is required"))
		return
	}
	ok, err := s.deps.Labels.AssignLabel(c.Request.Context(), id, req.LabelID, req.LabelName)
	if err != nil {
		handleError(c, err)
		return
	}
	if !ok {
		notFound(c, "card or label")
		return
	}
	c.JSON(http.StatusOK, gin.H{"assigned": true})
}

func (s *Server) handleRemoveLabel(c *gin.Context) {
	id, err := cardID(c)
	if err != nil {
		handleError(c, err)
		return
	}
	ok, err := s.deps.Labels.RemoveLabel(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	if !ok {
		notFound(c, "card")
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": true})
}
