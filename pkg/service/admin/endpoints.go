package admin

import (
	"net/http"

	"github.com/hazcod/hearth/pkg/auth/session"
	"github.com/hazcod/hearth/pkg/household"
	"github.com/hazcod/hearth/pkg/models"
	"github.com/sirupsen/logrus"
)

// HandleReset deletes the household baseline on behalf of the signed in administrator.
func HandleReset(logger *logrus.Logger, svc *household.Service, householdID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		user, err := session.GetUser(r)
		if err != nil || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if !user.HasRole(models.RoleAdmin) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		ctx := household.WithActor(r.Context(), user.Email)
		if err := svc.Reset(ctx, householdID); err != nil {
			logger.WithError(err).WithField("household_id", householdID).Error("failed to reset household")
			http.Error(w, "Failed to reset household", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, "/admin/?reset=1", http.StatusSeeOther)
	}
}
