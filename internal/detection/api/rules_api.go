package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/logward/logward/internal/detection/model"
	"github.com/logward/logward/internal/detection/sigma"
)

func (api *Api) setupSigmaRuleRouters(router *gin.Engine) {
	router.POST("/v1/sigma-rules", api.ImportSigmaRule)
	router.POST("/v1/sigma-rules/validate", api.ValidateSigmaRule)
	router.GET("/v1/sigma-rules", api.ListSigmaRules)
	router.POST("/v1/sigma-rules/:ruleID/enabled", api.SetSigmaRuleEnabled)
	router.DELETE("/v1/sigma-rules/:ruleID", api.DeleteSigmaRule)
}

type importRuleRequest struct {
	OrganizationID  string   `json:"organizationId"`
	ProjectID       *string  `json:"projectId"`
	Document        string   `json:"document"`
	EmailRecipients []string `json:"emailRecipients"`
	WebhookURL      string   `json:"webhookUrl"`
}

type importRuleResponse struct {
	Rule model.SigmaRule `json:"rule"`
}

type validateRuleResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ImportSigmaRule implements POST /v1/sigma-rules. The body carries the raw
// YAML rule document plus tenancy and notification settings; validation errors
// are returned all at once.
func (api *Api) ImportSigmaRule(c *gin.Context) {
	var req importRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errBody("INVALID_PARAMETER", err.Error()))
		return
	}
	if strings.TrimSpace(req.OrganizationID) == "" {
		c.JSON(http.StatusBadRequest, errBody("INVALID_PARAMETER", "organizationId is required"))
		return
	}

	rule, parseErrs := sigma.ParseRuleDocument(req.Document)
	if len(parseErrs) > 0 {
		c.JSON(http.StatusUnprocessableEntity, map[string]any{
			"error":  map[string]any{"code": "INVALID_RULE", "message": "rule document failed validation"},
			"errors": parseErrs,
		})
		return
	}

	stored := rule.SigmaRule
	stored.OrganizationID = req.OrganizationID
	stored.ProjectID = req.ProjectID
	if len(req.EmailRecipients) > 0 {
		stored.EmailRecipients = req.EmailRecipients
	}
	if req.WebhookURL != "" {
		stored.WebhookURL = req.WebhookURL
	}

	if err := api.sigmaRules.Insert(c.Request.Context(), stored); err != nil {
		c.JSON(http.StatusInternalServerError, errBody("INTERNAL_ERROR", err.Error()))
		return
	}
	api.detection.InvalidateRules()
	c.JSON(http.StatusCreated, importRuleResponse{Rule: stored})
}

// ValidateSigmaRule implements POST /v1/sigma-rules/validate: a dry run of the
// import parser that stores nothing.
func (api *Api) ValidateSigmaRule(c *gin.Context) {
	var req importRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errBody("INVALID_PARAMETER", err.Error()))
		return
	}
	if _, parseErrs := sigma.ParseRuleDocument(req.Document); len(parseErrs) > 0 {
		c.JSON(http.StatusOK, validateRuleResponse{Valid: false, Errors: parseErrs})
		return
	}
	c.JSON(http.StatusOK, validateRuleResponse{Valid: true})
}

func (api *Api) ListSigmaRules(c *gin.Context) {
	orgID := strings.TrimSpace(c.Query("organizationId"))
	if orgID == "" {
		c.JSON(http.StatusBadRequest, errBody("INVALID_PARAMETER", "organizationId is required"))
		return
	}
	rules, err := api.sigmaRules.ListByOrganization(c.Request.Context(), orgID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errBody("INTERNAL_ERROR", err.Error()))
		return
	}
	if rules == nil {
		rules = []model.SigmaRule{}
	}
	c.JSON(http.StatusOK, map[string]any{"items": rules})
}

type setEnabledRequest struct {
	OrganizationID string `json:"organizationId"`
	Enabled        bool   `json:"enabled"`
}

func (api *Api) SetSigmaRuleEnabled(c *gin.Context) {
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
	if err := api.sigmaRules.SetEnabled(c.Request.Context(), req.OrganizationID, ruleID, req.Enabled); err != nil {
		c.JSON(http.StatusNotFound, errBody("NOT_FOUND", err.Error()))
		return
	}
	api.detection.InvalidateRules()
	c.Status(http.StatusNoContent)
}

func (api *Api) DeleteSigmaRule(c *gin.Context) {
	ruleID := c.Param("ruleID")
	orgID := strings.TrimSpace(c.Query("organizationId"))
	if orgID == "" {
		c.JSON(http.StatusBadRequest, errBody("INVALID_PARAMETER", "organizationId is required"))
		return
	}
	if err := api.sigmaRules.Delete(c.Request.Context(), orgID, ruleID); err != nil {
		c.JSON(http.StatusNotFound, errBody("NOT_FOUND", err.Error()))
		return
	}
	api.detection.InvalidateRules()
	c.Status(http.StatusNoContent)
}
