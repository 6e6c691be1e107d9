package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/comorbid-index-engine/internal/domain"
	"github.com/comorbid-index-engine/internal/engine"
)

// codeRecordPayload is one diagnosis code row in a score request.
type codeRecordPayload struct {
	Patient []string `json:"patient" binding:"required"`
	Code    string   `json:"code"`
}

// registryRecordPayload is one cancer-registry row in a score request.
type registryRecordPayload struct {
	Patient    []string `json:"patient" binding:"required"`
	Site       string   `json:"site" binding:"required"`
	Metastatic bool     `json:"metastatic"`
}

// scoreRequest is the body of POST /api/v1/score.
type scoreRequest struct {
	Index             string                  `json:"index" binding:"required"`
	Site              string                  `json:"site"`
	IncludeIndicators *bool                   `json:"include_indicators"`
	IncludeScores     *bool                   `json:"include_scores"`
	Workers           int                     `json:"workers"`
	Records           []codeRecordPayload     `json:"records" binding:"required"`
	PreTreatment      []codeRecordPayload     `json:"pre_treatment"`
	Registry          []registryRecordPayload `json:"registry"`
}

func (r *scoreRequest) options() engine.Options {
	opts := engine.Options{
		Index:             domain.IndexVariant(r.Index),
		Site:              domain.CancerSite(r.Site),
		IncludeIndicators: true,
		IncludeScores:     true,
		Workers:           r.Workers,
	}
	if r.IncludeIndicators != nil {
		opts.IncludeIndicators = *r.IncludeIndicators
	}
	if r.IncludeScores != nil {
		opts.IncludeScores = *r.IncludeScores
	}
	return opts
}

func (r *scoreRequest) input() engine.Input {
	in := engine.Input{}
	for _, rec := range r.Records {
		in.Records = append(in.Records, domain.CodeRecord{
			Patient: domain.NewPatientKey(rec.Patient...),
			Code:    rec.Code,
		})
	}
	for _, rec := range r.PreTreatment {
		in.PreTreatment = append(in.PreTreatment, domain.CodeRecord{
			Patient: domain.NewPatientKey(rec.Patient...),
			Code:    rec.Code,
		})
	}
	for _, rec := range r.Registry {
		in.Registry = append(in.Registry, domain.RegistryRecord{
			Patient:    domain.NewPatientKey(rec.Patient...),
			Site:       domain.CancerSite(rec.Site),
			Metastatic: rec.Metastatic,
		})
	}
	return in
}

func (s *Server) handleHealth(c *gin.Context) {
	health := gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	}
	if s.db != nil {
		if err := s.db.Health(c.Request.Context()); err != nil {
			health["database"] = "unavailable"
		} else {
			health["database"] = "ok"
		}
	}
	if s.cache != nil {
		if err := s.cache.Health(c.Request.Context()); err != nil {
			health["cache"] = "unavailable"
		} else {
			health["cache"] = "ok"
		}
	}
	c.JSON(http.StatusOK, health)
}

// handleListIndices describes the supported index variants and, for the
// site-parameterised variant, the accepted cancer sites.
func (s *Server) handleListIndices(c *gin.Context) {
	sites := make([]string, 0, len(domain.AllSites()))
	for _, site := range domain.AllSites() {
		sites = append(sites, site.String())
	}

	c.JSON(http.StatusOK, gin.H{
		"indices": []gin.H{
			{"index": domain.IndexM3.String(), "sites": []string{}},
			{"index": domain.IndexC3.String(), "sites": sites},
		},
	})
}

func (s *Server) handleScore(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if s.cache != nil {
		if cached, ok := s.cache.Get(c.Request.Context(), &req); ok {
			c.Header("X-Cache", "hit")
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	pipeline, err := engine.New(req.options(), s.logger)
	if err != nil {
		status := http.StatusBadRequest
		var cfgErr *domain.ConfigError
		if !errors.As(err, &cfgErr) && !errors.Is(err, domain.ErrUnknownIndex) &&
			!errors.Is(err, domain.ErrUnknownSite) && !errors.Is(err, domain.ErrNoOutputs) {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	result, err := pipeline.Run(c.Request.Context(), req.input())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if s.cache != nil {
		s.cache.Set(c.Request.Context(), &req, result)
	}

	if s.store != nil {
		if err := s.store.SaveRun(c.Request.Context(), result); err != nil {
			// A failed write never fails the scoring request.
			s.logger.WithFields(logrus.Fields{
				"run_id": result.RunID,
				"error":  err.Error(),
			}).Error("Failed to persist run")
		}
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleListRuns(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "result persistence is disabled"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := s.store.ListRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleGetRun(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "result persistence is disabled"})
		return
	}

	runID := c.Param("id")
	summary, err := s.store.GetRun(c.Request.Context(), runID)
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	results, err := s.store.GetResults(c.Request.Context(), runID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run":      summary,
		"patients": results,
	})
}
