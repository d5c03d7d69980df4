package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/hazcod/hearth/pkg/auth/session"
	"github.com/hazcod/hearth/pkg/collector"
	"github.com/hazcod/hearth/pkg/household"
	"github.com/hazcod/hearth/pkg/models"
	"github.com/hazcod/hearth/pkg/service/reading"
	"github.com/hazcod/hearth/pkg/verdict"
	"github.com/sirupsen/logrus"
)

type householdPageData struct {
	baseData
	HouseholdID  string
	Phrase       string
	Enrolled     bool
	IsHost       bool
	JustEnrolled bool
}

type verdictPageData struct {
	baseData
	Result  *verdict.Result
	Waiting string
	Error   string
}

// GetHouseholdPage shows the enroll form until a host exists, then the verify form.
func GetHouseholdPage(logger *logrus.Logger, svc *household.Service, coll *collector.Collector, householdID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		_, err := svc.Baseline(r.Context(), householdID)
		if err != nil && !errors.Is(err, household.ErrNotEnrolled) {
			logger.WithError(err).Error("error loading household baseline")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		data := householdPageData{
			baseData:     newBase(r, "Household", "household"),
			HouseholdID:  householdID,
			Phrase:       coll.Phrase(),
			Enrolled:     err == nil,
			IsHost:       hostOf(logger, w, r, svc),
			JustEnrolled: r.URL.Query().Get("enrolled") != "",
		}

		render(logger, w, householdTmpl, http.StatusOK, data)
	}
}

// hostOf reports whether this browser enrolled the current baseline and forgets
// claims to a baseline that has since been reset.
func hostOf(logger *logrus.Logger, w http.ResponseWriter, r *http.Request, svc *household.Service) bool {
	claim, err := session.GetHost(r)
	if err != nil || claim == nil {
		return false
	}

	if svc.IsHost(r.Context(), claim) {
		return true
	}

	if err := session.ClearHost(w, r); err != nil {
		logger.WithError(err).Debug("could not forget stale host claim")
	}
	return false
}

// collect reads the posted form and runs the collector. A nil attempt means the
// error page has already been written.
func collect(logger *logrus.Logger, w http.ResponseWriter, r *http.Request, coll *collector.Collector) *collector.Attempt {
	req, err := reading.FromForm(r)
	if err != nil {
		logger.WithError(err).Debug("household form rejected")
		renderVerdict(logger, w, r, http.StatusBadRequest, verdictPageData{Error: "The form could not be read."})
		return nil
	}

	attempt, err := coll.Collect(r.Context(), req.Input(r))
	if err != nil {
		renderError(logger, w, r, err)
		return nil
	}

	if !attempt.Ready() {
		renderVerdict(logger, w, r, http.StatusAccepted, verdictPageData{Waiting: attempt.Reason})
		return nil
	}

	return attempt
}

// PostEnroll enrolls the posted reading and marks this browser as the host.
func PostEnroll(logger *logrus.Logger, svc *household.Service, coll *collector.Collector, householdID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		attempt := collect(logger, w, r, coll)
		if attempt == nil {
			return
		}

		baseline, err := svc.Enroll(r.Context(), householdID, attempt.Sample)
		if err != nil {
			renderError(logger, w, r, err)
			return
		}

		claim := &models.HostClaim{HouseholdID: baseline.HouseholdID, Revision: baseline.Revision}
		if err := session.SetHost(w, r, claim); err != nil {
			logger.WithError(err).Warn("could not remember host browser")
		}

		http.Redirect(w, r, "/household/?enrolled=1", http.StatusSeeOther)
	}
}

// PostVerify scores the posted reading against the baseline.
func PostVerify(logger *logrus.Logger, svc *household.Service, coll *collector.Collector, householdID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		attempt := collect(logger, w, r, coll)
		if attempt == nil {
			return
		}

		result, err := svc.Verify(r.Context(), householdID, attempt.Sample)
		if err != nil {
			renderError(logger, w, r, err)
			return
		}

		renderVerdict(logger, w, r, http.StatusOK, verdictPageData{Result: result})
	}
}

func renderError(logger *logrus.Logger, w http.ResponseWriter, r *http.Request, err error) {
	status := reading.Status(err)
	if status == http.StatusInternalServerError && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Error("household request failed")
	}

	renderVerdict(logger, w, r, status, verdictPageData{Error: reading.Message(err)})
}

func renderVerdict(logger *logrus.Logger, w http.ResponseWriter, r *http.Request, status int, data verdictPageData) {
	data.baseData = newBase(r, "Verdict", "household")
	render(logger, w, verdictTmpl, status, data)
}
