package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/cardscan/internal/common"
	"github.com/joseph-ayodele/cardscan/internal/export"
)

func sendReport(c *gin.Context, rep *export.Report) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rep.Filename))
	c.Data(http.StatusOK, rep.ContentType, rep.Data)
}

func (s *Server) handleExportAll(c *gin.Context) {
	rep, err := s.deps.Exports.ExportAll(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	sendReport(c, rep)
}

func (s *Server) handleExportAnalytics(c *gin.Context) {
	rep, err := s.deps.Exports.Analytics(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	sendReport(c, rep)
}

func (s *Server) handleExportLabels(c *gin.Context) {
	var req struct {
		LabelIDs         []string `json:"label_ids"`
		IncludeUnlabeled bool     `json:"include_unlabeled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, common.Invalidf("invalid request body: %v", err))
		return
	}
	rep, err := s.deps.Exports.ByLabels(c.Request.Context(), export.LabelFilter{
		IDs:              req.LabelIDs,
		IncludeUnlabeled: req.IncludeUnlabeled,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	sendReport(c, rep)
}

func (s *Server) handleExportCountries(c *gin.Context) {
	var req struct {
		Countries []string `json:"countries"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, common.Invalidf("invalid request body: %v", err))
		return
	}
	rep, err := s.deps.Exports.ByCountries(c.Request.Context(), export.CountryFilter{Codes: req.Countries})
	if err != nil {
		handleError(c, err)
		return
	}
	sendReport(c, rep)
}

func (s *Server) handleAnalytics(c *gin.Context) {
	a, err := s.deps.Exports.Summary(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":            a.Total,
		"email_coverage":   export.Percent(a.WithEmail, a.Total),
		"phone_coverage":   export.Percent(a.WithPhone, a.Total),
		"company_coverage": export.Percent(a.WithCompany, a.Total),
		"top_companies":    nonNil(a.TopCompanies),
		"countries":        nonNil(a.Countries),
		"contacts": gin.H{
			"email_only": a.EmailOnly,
			"phone_only": a.PhoneOnly,
			"both":       a.Both,
			"neither":    a.Neither,
		},
	})
}
