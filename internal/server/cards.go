package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/cardscan/internal/common"
	"github.com/joseph-ayodele/cardscan/internal/country"
	"github.com/joseph-ayodele/cardscan/internal/entity"
	"github.com/joseph-ayodele/cardscan/internal/services/cards"
)

type cardRequest struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Company     string `json:"company"`
	Website     string `json:"website"`
	Designation string `json:"designation"`
	Country     string `json:"country"`
	entity.EventInfo
}

func cardID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, common.Invalidf("card id must be an integer")
	}
	return id, nil
}

func notFound(c *gin.Context, what string) {
	c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
}

func (s *Server) handleListCards(c *gin.Context) {
	list, err := s.deps.Cards.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cards": nonNil(list), "count": len(list)})
}

func (s *Server) handleRecentCards(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	list, err := s.deps.Cards.Recent(c.Request.Context(), limit)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cards": nonNil(list)})
}

func (s *Server) handleUnsortedCards(c *gin.Context) {
	list, err := s.deps.Labels.UnsortedCards(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cards": nonNil(list)})
}

func (s *Server) handleCreateCard(c *gin.Context) {
	var req cardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, common.Invalidf("invalid request body: %v", err))
		return
	}
	card, err := s.deps.Cards.Create(c.Request.Context(), cards.CardInput{
		Name:        req.Name,
		Phone:       req.Phone,
		Email:       req.Email,
		Company:     req.Company,
		Website:     req.Website,
		Designation: req.Designation,
		Country:     req.Country,
		Event:       req.EventInfo,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, card)
}

func (s *Server) handleGetCard(c *gin.Context) {
	id, err := cardID(c)
	if err != nil {
		handleError(c, err)
		return
	}
	card, err := s.deps.Cards.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (s *Server) handleUpdateCard(c *gin.Context) {
	id, err := cardID(c)
	if err != nil {
		handleError(c, err)
		return
	}
	var u cards.CardUpdate
	if err := c.ShouldBindJSON(&u); err != nil {
		handleError(c, common.Invalidf("invalid request body: %v", err))
		return
	}
	ok, err := s.deps.Cards.Update(c.Request.Context(), id, u)
	if err != nil {
		handleError(c, err)
		return
	}
	if !ok {
		notFound(c, "card")
		return
	}
	card, err := s.deps.Cards.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (s *Server) handleDeleteCard(c *gin.Context) {
	id, err := cardID(c)
	if err != nil {
		handleError(c, err)
		return
	}
	ok, err := s.deps.Cards.Delete(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	if !ok {
		notFound(c, "card")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) handleCardImage(c *gin.Context) {
	id, err := cardID(c)
	if err != nil {
		handleError(c, err)
		return
	}
	data, mime, err := s.deps.Cards.Image(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.Data(http.StatusOK, mime, data)
}

func (s *Server) handleCheckDuplicate(c *gin.Context) {
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, common.Invalidf("invalid request body: %v", err))
		return
	}
	dup, err := s.deps.Cards.IsDuplicate(c.Request.Context(), req.Name, req.Email, req.Phone)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"duplicate": dup})
}

func (s *Server) handleCountries(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"countries": country.Countries()})
}

func (s *Server) handleBackfill(c *gin.Context) {
	n, err := s.deps.Cards.BackfillCountries(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
