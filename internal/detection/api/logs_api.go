package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/logward/logward/internal/detection/model"
)

func (api *Api) setupLogRouters(router *gin.Engine) {
	router.POST("/v1/logs", api.IngestLogs)
	router.POST("/v1/logs/evaluate", api.EvaluateLogs)
}

type ingestRequest struct {
	OrganizationID string            `json:"organizationId"`
	ProjectID      *string           `json:"projectId"`
	Logs           []model.LogRecord `json:"logs"`
}

type ingestResponse struct {
	Accepted int                      `json:"accepted"`
	Results  map[int]model.EvalResult `json:"results"`
}

// IngestLogs implements POST /v1/logs: persist the batch, run Sigma detection
// inline, and dispatch notifications for matches. The ingest succeeds even
// when detection fails; detection is best effort on this path.
func (api *Api) IngestLogs(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errBody("INVALID_PARAMETER", err.Error()))
		return
	}
	if strings.TrimSpace(req.OrganizationID) == "" {
		c.JSON(http.StatusBadRequest, errBody("INVALID_PARAMETER", "organizationId is required"))
		return
	}
	if len(req.Logs) == 0 {
		c.JSON(http.StatusBadRequest, errBody("INVALID_PARAMETER", "logs must not be empty"))
		return
	}

	ctx := c.Request.Context()
	if err := api.logs.InsertBatch(ctx, req.OrganizationID, req.ProjectID, req.Logs); err != nil {
		c.JSON(http.StatusInternalServerError, errBody("INTERNAL_ERROR", err.Error()))
		return
	}

	results, err := api.detection.EvaluateBatch(ctx, req.Logs, req.OrganizationID, req.ProjectID)
	if err != nil {
		log.Error().Err(err).Str("organization", req.OrganizationID).Msg("inline detection failed")
		c.JSON(http.StatusAccepted, ingestResponse{Accepted: len(req.Logs)})
		return
	}
	if jobs, err := api.detection.MatchJobs(ctx, results, req.OrganizationID, req.ProjectID); err == nil && len(jobs) > 0 {
		api.notifier.Dispatch(ctx, jobs)
	}
	c.JSON(http.StatusAccepted, ingestResponse{Accepted: len(req.Logs), Results: results})
}

// EvaluateLogs implements POST /v1/logs/evaluate: run detection over the batch
// without persisting records or dispatching notifications.
func (api *Api) EvaluateLogs(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errBody("INVALID_PARAMETER", err.Error()))
		return
	}
	if strings.TrimSpace(req.OrganizationID) == "" {
		c.JSON(http.StatusBadRequest, errBody("INVALID_PARAMETER", "organizationId is required"))
		return
	}
	results, err := api.detection.EvaluateBatch(c.Request.Context(), req.Logs, req.OrganizationID, req.ProjectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errBody("INTERNAL_ERROR", err.Error()))
		return
	}
	c.JSON(http.StatusOK, map[string]any{"results": results})
}
