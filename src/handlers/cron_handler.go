package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/JavierChicano/inversiones-app/src/config"
	"github.com/JavierChicano/inversiones-app/src/logger"
	"github.com/JavierChicano/inversiones-app/src/services"
	"github.com/JavierChicano/inversiones-app/src/utils"
)

type CronHandler struct {
	snapshotService *services.SnapshotService
}

func NewCronHandler(snapshotService *services.SnapshotService) *CronHandler {
	return &CronHandler{snapshotService: snapshotService}
}

// CronAuthMiddleware guards scheduled-job routes with the shared secret
// carried as a bearer token.
func CronAuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		secret := config.Cfg.CronSecret
		if secret == "" {
			logger.L.Error("cron route hit but CRON_SECRET is not configured")
			utils.SendJSONError(w, "Cron jobs are not configured", http.StatusServiceUnavailable)
			return
		}

		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			logger.L.Warn("cron auth failed", "path", r.URL.Path, "remoteAddr", r.RemoteAddr)
			utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// HandleDailySnapshot runs the full maintenance pass.
func (h *CronHandler) HandleDailySnapshot(w http.ResponseWriter, r *http.Request) {
	report, err := h.snapshotService.Run(r.Context())
	if err != nil {
		logger.L.Error("snapshot cron failed", "error", err)
		utils.SendJSONError(w, "Snapshot run failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// HandleRefreshPrices re-quotes every stored asset without snapshotting.
func (h *CronHandler) HandleRefreshPrices(w http.ResponseWriter, r *http.Request) {
	result, err := h.snapshotService.RefreshAllPrices(r.Context())
	if err != nil {
		logger.L.Error("price refresh cron failed", "error", err)
		utils.SendJSONError(w, "Price refresh failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
