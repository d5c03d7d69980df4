package enroll

import (
	"net/http"

	"github.com/hazcod/hearth/pkg/collector"
	"github.com/hazcod/hearth/pkg/household"
	"github.com/hazcod/hearth/pkg/service/reading"
	"github.com/sirupsen/logrus"
)

// HandleEnroll collects a reading and saves it as the household baseline.
func HandleEnroll(logger *logrus.Logger, svc *household.Service, coll *collector.Collector, householdID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		req, err := reading.Decode(w, r)
		if err != nil {
			logger.WithError(err).Debug("enroll request rejected")
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		attempt, err := coll.Collect(r.Context(), req.Input(r))
		if err != nil {
			reading.WriteError(logger, w, err)
			return
		}

		if !attempt.Ready() {
			reading.WriteJSON(logger, w, http.StatusAccepted, attempt)
			return
		}

		baseline, err := svc.Enroll(r.Context(), householdID, attempt.Sample)
		if err != nil {
			reading.WriteError(logger, w, err)
			return
		}

		reading.WriteJSON(logger, w, http.StatusCreated, baseline)
	}
}

// HandleGetBaseline returns the enrolled baseline.
func HandleGetBaseline(logger *logrus.Logger, svc *household.Service, householdID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		baseline, err := svc.Baseline(r.Context(), householdID)
		if err != nil {
			reading.WriteError(logger, w, err)
			return
		}

		reading.WriteJSON(logger, w, http.StatusOK, baseline)
	}
}
