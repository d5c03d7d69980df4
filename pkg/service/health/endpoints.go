package health

import (
	"context"
	"net/http"
	"time"

	"github.com/hazcod/hearth/pkg/service/reading"
	"github.com/hazcod/hearth/pkg/storage"
	"github.com/sirupsen/logrus"
)

const pingTimeout = 2 * time.Second

// HandleHealthCheck reports whether the baseline store answers.
func HandleHealthCheck(logger *logrus.Logger, store storage.Driver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			logger.WithError(err).Warn("health check failed on storage")
			reading.WriteJSON(logger, w, http.StatusServiceUnavailable, map[string]string{
				"status":  "degraded",
				"storage": "unreachable",
			})
			return
		}

		reading.WriteJSON(logger, w, http.StatusOK, map[string]string{
			"status":  "ok",
			"storage": "ok",
		})
	}
}
