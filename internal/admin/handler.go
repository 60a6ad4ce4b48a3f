package admin

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"dongmoa/eventworker/internal/analyzer"
	"dongmoa/eventworker/internal/event"
	"dongmoa/eventworker/internal/runner"
	"dongmoa/eventworker/logger"
	"dongmoa/eventworker/services/store"
)

// Handler serves the management API for sources, runs and diagnostics
type Handler struct {
	Store    store.Store
	Runner   *runner.Runner
	Analyzer *analyzer.Analyzer
}

func NewHandler(s store.Store, r *runner.Runner, a *analyzer.Analyzer) *Handler {
	return &Handler{Store: s, Runner: r, Analyzer: a}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/data-sources", h.listSources)
	rg.GET("/data-sources/:id", h.getSource)
	rg.POST("/data-sources", h.createSource)
	rg.PUT("/data-sources/:id", h.updateSource)
	rg.DELETE("/data-sources/:id", h.deleteSource)
	rg.PATCH("/data-sources/:id/toggle", h.toggleSource)
	rg.POST("/data-sources/:id/test", h.testSource)
	rg.POST("/data-sources/:id/collect", h.collectSource)
	rg.POST("/analyze-site", h.analyzeSite)
	rg.GET("/collection-logs", h.listRunLogs)
	rg.GET("/districts", h.listDistricts)
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "message": msg})
}

func (h *Handler) listSources(c *gin.Context) {
	var districtID int64
	if s := c.Query("districtId"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			fail(c, http.StatusBadRequest, "districtId must be a number")
			return
		}
		districtID = n
	}

	sources, err := h.Store.ListSources(c.Request.Context(), districtID)
	if err != nil {
		logger.ForAdmin().Error().Err(err).Msg("Failed to list data sources")
		fail(c, http.StatusInternalServerError, "list failed")
		return
	}
	ok(c, sources)
}

// getSource returns one source with its most recent run logs
func (h *Handler) getSource(c *gin.Context) {
	id, okID := parseID(c)
	if !okID {
		return
	}
	src, err := h.Store.GetSource(c.Request.Context(), id)
	if err != nil {
		fail(c, http.StatusInternalServerError, "lookup failed")
		return
	}
	if src == nil {
		fail(c, http.StatusNotFound, "data source not found")
		return
	}

	all, err := h.Store.ListRunLogs(c.Request.Context(), 100)
	if err != nil {
		fail(c, http.StatusInternalServerError, "log lookup failed")
		return
	}
	var recent []*event.CollectionRunLog
	for _, l := range all {
		if l.DataSourceID == id {
			recent = append(recent, l)
			if len(recent) == 10 {
				break
			}
		}
	}

	ok(c, gin.H{"source": src, "recentLogs": recent})
}

type sourceRequest struct {
	Name       string          `json:"name"`
	SourceType string          `json:"sourceType"`
	URL        string          `json:"url"`
	DistrictID int64           `json:"districtId"`
	IsActive   *bool           `json:"isActive"`
	Config     json.RawMessage `json:"config"`
}

func (h *Handler) createSource(c *gin.Context) {
	var req sourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	src := &event.SourceDescriptor{
		Name:       strings.TrimSpace(req.Name),
		Kind:       event.SourceKind(strings.ToUpper(req.SourceType)),
		URL:        req.URL,
		DistrictID: req.DistrictID,
		IsActive:   true,
		Config:     string(req.Config),
	}
	if req.IsActive != nil {
		src.IsActive = *req.IsActive
	}

	if err := src.Validate(); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateConfig(src); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Store.CreateSource(c.Request.Context(), src); err != nil {
		logger.ForAdmin().Error().Err(err).Str("name", src.Name).Msg("Failed to create data source")
		fail(c, http.StatusInternalServerError, "create failed")
		return
	}

	logger.ForAdmin().Info().Str("name", src.Name).Str("kind", string(src.Kind)).Msg("Created data source")
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": src})
}

func (h *Handler) updateSource(c *gin.Context) {
	id, okID := parseID(c)
	if !okID {
		return
	}

	existing, err := h.Store.GetSource(c.Request.Context(), id)
	if err != nil {
		fail(c, http.StatusInternalServerError, "lookup failed")
		return
	}
	if existing == nil {
		fail(c, http.StatusNotFound, "data source not found")
		return
	}

	var req sourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	// Kind is immutable; a changed extraction strategy means a new source
	if req.SourceType != "" && !strings.EqualFold(req.SourceType, string(existing.Kind)) {
		fail(c, http.StatusBadRequest, "sourceType cannot be changed")
		return
	}

	if req.Name != "" {
		existing.Name = strings.TrimSpace(req.Name)
	}
	if req.URL != "" {
		existing.URL = req.URL
	}
	if req.DistrictID != 0 {
		existing.DistrictID = req.DistrictID
	}
	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}
	if len(req.Config) > 0 {
		existing.Config = string(req.Config)
	}

	if err := existing.Validate(); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateConfig(existing); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Store.UpdateSource(c.Request.Context(), existing); err != nil {
		logger.ForAdmin().Error().Err(err).Int64("id", id).Msg("Failed to update data source")
		fail(c, http.StatusInternalServerError, "update failed")
		return
	}
	ok(c, existing)
}

func (h *Handler) deleteSource(c *gin.Context) {
	id, okID := parseID(c)
	if !okID {
		return
	}
	if err := h.Store.DeleteSource(c.Request.Context(), id); err != nil {
		fail(c, http.StatusInternalServerError, "delete failed")
		return
	}
	logger.ForAdmin().Info().Int64("id", id).Msg("Deleted data source")
	ok(c, gin.H{"id": id})
}

func (h *Handler) toggleSource(c *gin.Context) {
	id, okID := parseID(c)
	if !okID {
		return
	}
	src, err := h.Store.GetSource(c.Request.Context(), id)
	if err != nil {
		fail(c, http.StatusInternalServerError, "lookup failed")
		return
	}
	if src == nil {
		fail(c, http.StatusNotFound, "data source not found")
		return
	}

	src.IsActive = !src.IsActive
	if err := h.Store.UpdateSource(c.Request.Context(), src); err != nil {
		fail(c, http.StatusInternalServerError, "toggle failed")
		return
	}
	logger.ForAdmin().Info().Int64("id", id).Bool("active", src.IsActive).Msg("Toggled data source")
	ok(c, src)
}

// testSource performs a dry collection: extraction runs but nothing is
// stored and no run log is written.
func (h *Handler) testSource(c *gin.Context) {
	id, okID := parseID(c)
	if !okID {
		return
	}
	src, err := h.Store.GetSource(c.Request.Context(), id)
	if err != nil {
		fail(c, http.StatusInternalServerError, "lookup failed")
		return
	}
	if src == nil {
		fail(c, http.StatusNotFound, "data source not found")
		return
	}

	candidates, errs := h.Runner.TestSource(c.Request.Context(), src)
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}

	preview := candidates
	if len(preview) > 10 {
		preview = preview[:10]
	}
	ok(c, gin.H{
		"collected": len(candidates),
		"errors":    msgs,
		"preview":   preview,
	})
}

// collectSource runs a real collection for one source immediately
func (h *Handler) collectSource(c *gin.Context) {
	id, okID := parseID(c)
	if !okID {
		return
	}
	src, err := h.Store.GetSource(c.Request.Context(), id)
	if err != nil {
		fail(c, http.StatusInternalServerError, "lookup failed")
		return
	}
	if src == nil {
		fail(c, http.StatusNotFound, "data source not found")
		return
	}

	summary := h.Runner.RunSource(c.Request.Context(), src)
	ok(c, summary)
}

func (h *Handler) analyzeSite(c *gin.Context) {
	var req struct {
		URL string `json:"url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		fail(c, http.StatusBadRequest, "url is required")
		return
	}

	analysis, err := h.Analyzer.Analyze(c.Request.Context(), req.URL)
	if err != nil {
		fail(c, http.StatusBadGateway, err.Error())
		return
	}
	ok(c, analysis)
}

func (h *Handler) listRunLogs(c *gin.Context) {
	limit := 50
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	logs, err := h.Store.ListRunLogs(c.Request.Context(), limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, "list failed")
		return
	}
	ok(c, logs)
}

func (h *Handler) listDistricts(c *gin.Context) {
	districts, err := h.Store.ListDistricts(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, "list failed")
		return
	}
	ok(c, districts)
}

func validateConfig(src *event.SourceDescriptor) error {
	if src.Config == "" {
		return nil
	}
	if src.Kind == event.SourceKindAPI {
		_, err := src.DecodeAPIConfig()
		return err
	}
	_, err := src.DecodePageConfig()
	return err
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "id must be a positive number")
		return 0, false
	}
	return id, true
}
