package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/logward/logward/internal/detection/model"
	"github.com/logward/logward/internal/detection/service/alertcheck"
)

func (api *Api) setupAlertRouters(router *gin.Engine) {
	router.GET("/v1/alert-rules", api.ListAlertRules)
	router.POST("/v1/alert-rules", api.CreateAlertRule)
	router.POST("/v1/alert-rules/:ruleID/enabled", api.SetAlertRuleEnabled)
	router.GET("/v1/alert-rules/:ruleID/history", api.ListAlertHistory)
	router.POST("/v1/alert-checks/run", api.RunAlertChecks)
}

func (api *Api) ListAlertRules(c *gin.Context) {
	orgID := strings.TrimSpace(c.Query("organizationId"))
	if orgID == "" {
		c.JSON(http.StatusBadRequest, errBody("INVALID_PARAMETER", "organizationId is required"))
		return
	}
	rules, err := api.alertRules.ListByOrganization(c.Request.Context(), orgID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errBody("INTERNAL_ERROR", err.Error()))
		return
	}
	if rules == nil {
		rules = []model.AlertRule{}
	}
	c.JSON(http.StatusOK, map[string]any{"items": rules})
}

type createAlertRuleRequest struct {
	OrganizationID    string   `json:"organizationId"`
	ProjectID         *string  `json:"projectId"`
	Name              string   `json:"name"`
	Service           *string  `json:"service"`
	Levels            []string `json:"levels"`
	TimeWindowMinutes int      `json:"timeWindowMinutes"`
	Threshold         int      `json:"threshold"`
	EmailRecipients   []string `json:"emailRecipients"`
	WebhookURL        string   `json:"webhookUrl"`
}

func (req *createAlertRuleRequest) validate() string {
	if strings.TrimSpace(req.OrganizationID) == "" {
		return "organizationId is required"
	}
	if strings.TrimSpace(req.Name) == "" {
		return "name is required"
	}
	if req.TimeWindowMinutes < 1 {
		return "timeWindowMinutes must be at least 1"
	}
	if req.Threshold < 1 {
		return "threshold must be at least 1"
	}
	for _, level := range req.Levels {
		ok := false
		for _, valid := range model.ValidLevels {
			if level == valid {
				ok = true
				break
			}
		}
		if !ok {
			return "invalid level " + strconv.Quote(level)
		}
	}
	return ""
}

func (api *Api) CreateAlertRule(c *gin.Context) {
	var req createAlertRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errBody("INVALID_PARAMETER", err.Error()))
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, errBody("INVALID_PARAMETER", msg))
		return
	}

	rule := model.AlertRule{
		ID:                uuid.NewString(),
		OrganizationID:    req.OrganizationID,
		ProjectID:         req.ProjectID,
		Name:              req.Name,
		Service:           req.Service,
		Levels:            req.Levels,
		TimeWindowMinutes: req.TimeWindowMinutes,
		Threshold:         req.Threshold,
		Enabled:           true,
		EmailRecipients:   req.EmailRecipients,
		WebhookURL:        req.WebhookURL,
	}
	if err := api.alertRules.Insert(c.Request.Context(), rule); err != nil {
		c.JSON(http.StatusInternalServerError, errBody("INTERNAL_ERROR", err.Error()))
		return
	}
	c.JSON(http.StatusCreated, map[string]any{"rule": rule})
}

func (api *Api) SetAlertRuleEnabled(c *gin.Context) {
	ruleID := c.Param("ruleID")
	var req setEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errBody("INVALID_PARAMETER", err.Error()))
		return
	}
	if req.OrganizationID == "" {
		c.JSON(http.StatusBadRequest, errBody("INVALID_PARAMETER", "organizationId is required"))
		return
	}
	if err := api.alertRules.SetEnabled(c.Request.Context(), req.OrganizationID, ruleID, req.Enabled); err != nil {
		c.JSON(http.StatusNotFound, errBody("NOT_FOUND", err.Error()))
		return
	}
	c.Status(http.StatusNoContent)
}

// ListAlertHistory implements GET /v1/alert-rules/:ruleID/history?limit=N,
// newest first.
func (api *Api) ListAlertHistory(c *gin.Context) {
	ruleID := c.Param("ruleID")
	limit := 0
	if s := strings.TrimSpace(c.Query("limit")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 500 {
			c.JSON(http.StatusBadRequest, errBody("INVALID_PARAMETER", "limit must be 1-500"))
			return
		}
		limit = n
	}
	entries, err := api.history.ListByRule(c.Request.Context(), ruleID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errBody("INTERNAL_ERROR", err.Error()))
		return
	}
	if entries == nil {
		entries = []model.AlertHistoryEntry{}
	}
	c.JSON(http.StatusOK, map[string]any{"items": entries})
}

// RunAlertChecks implements POST /v1/alert-checks/run: one on-demand scan over
// every enabled alert rule, outside the scheduler tick. Triggers are
// dispatched the same way scheduled ones are.
func (api *Api) RunAlertChecks(c *gin.Context) {
	ctx := c.Request.Context()
	triggers, err := api.evaluator.CheckAlertRules(ctx)
	if len(triggers) > 0 && api.notifier != nil {
		api.notifier.Dispatch(ctx, alertcheck.Jobs(triggers))
	}
	resp := map[string]any{"triggers": triggers}
	if triggers == nil {
		resp["triggers"] = []model.AlertTrigger{}
	}
	if err != nil {
		resp["error"] = map[string]any{"code": "PARTIAL_FAILURE", "message": err.Error()}
		c.JSON(http.StatusMultiStatus, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}
