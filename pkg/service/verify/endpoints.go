package verify

import (
	"net/http"

	"github.com/hazcod/hearth/pkg/collector"
	"github.com/hazcod/hearth/pkg/household"
	"github.com/hazcod/hearth/pkg/service/reading"
	"github.com/hazcod/hearth/pkg/verdict"
	"github.com/sirupsen/logrus"
)

type response struct {
	Phase  collector.Phase `json:"phase"`
	Result *verdict.Result `json:"result"`
}

// HandleVerify collects a visitor reading and returns the verdict against the baseline.
func HandleVerify(logger *logrus.Logger, svc *household.Service, coll *collector.Collector, householdID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		req, err := reading.Decode(w, r)
		if err != nil {
			logger.WithError(err).Debug("verify request rejected")
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

		result, err := svc.Verify(r.Context(), householdID, attempt.Sample)
		if err != nil {
			reading.WriteError(logger, w, err)
			return
		}

		reading.WriteJSON(logger, w, http.StatusOK, response{Phase: attempt.Phase, Result: result})
	}
}
