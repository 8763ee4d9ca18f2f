// Package api exposes the detection engine over HTTP: rule import and
// management, log ingestion with inline evaluation, and alert history.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/logward/logward/internal/detection/database"
	"github.com/logward/logward/internal/detection/service"
	"github.com/logward/logward/internal/detection/service/alertcheck"
	"github.com/logward/logward/internal/detection/service/notify"
)

type Api struct {
	sigmaRules *database.SigmaRuleRepo
	alertRules *database.AlertRuleRepo
	history    *database.AlertHistoryRepo
	logs       *database.LogRepo
	detection  *service.Detection
	evaluator  *alertcheck.Evaluator
	notifier   *notify.Dispatcher
	router     *gin.Engine
}

func NewApi(
	sigmaRules *database.SigmaRuleRepo,
	alertRules *database.AlertRuleRepo,
	history *database.AlertHistoryRepo,
	logs *database.LogRepo,
	detection *service.Detection,
	evaluator *alertcheck.Evaluator,
	notifier *notify.Dispatcher,
	router *gin.Engine,
) (*Api, error) {
	api := &Api{
		sigmaRules: sigmaRules,
		alertRules: alertRules,
		history:    history,
		logs:       logs,
		detection:  detection,
		evaluator:  evaluator,
		notifier:   notifier,
		router:     router,
	}

	api.setupRouters(router)
	return api, nil
}

func (api *Api) setupRouters(router *gin.Engine) {
	api.setupSigmaRuleRouters(router)
	api.setupLogRouters(router)
	api.setupAlertRouters(router)
}

func errBody(code, message string) map[string]any {
	return map[string]any{"error": map[string]any{"code": code, "message": message}}
}
