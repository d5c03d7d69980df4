package web

import (
	"errors"
	"net/http"

	"github.com/hazcod/hearth/pkg/household"
	"github.com/hazcod/hearth/pkg/models"
	"github.com/sirupsen/logrus"
)

type adminPageData struct {
	baseData
	HouseholdID string
	Baseline    *models.Baseline
	Reset       bool
}

// GetAdminPage shows the enrolled baseline with the reset action. Requires an admin session.
func GetAdminPage(logger *logrus.Logger, svc *household.Service, householdID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		baseline, err := svc.Baseline(r.Context(), householdID)
		if err != nil && !errors.Is(err, household.ErrNotEnrolled) {
			logger.WithError(err).Error("error loading household baseline")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		render(logger, w, adminTmpl, http.StatusOK, adminPageData{
			baseData:    newBase(r, "Admin", "admin"),
			HouseholdID: householdID,
			Baseline:    baseline,
			Reset:       r.URL.Query().Get("reset") != "",
		})
	}
}
