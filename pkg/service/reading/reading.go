// Package reading decodes sensor readings posted by clients and maps domain errors
// onto HTTP responses.
package reading

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/hazcod/hearth/pkg/collector"
	"github.com/hazcod/hearth/pkg/household"
	"github.com/hazcod/hearth/pkg/models"
	"github.com/hazcod/hearth/pkg/storage"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 64 << 10

// Request is one client report. The user agent defaults to the request header.
type Request struct {
	UserAgent   string              `json:"user_agent" valid:"length(0|1024)"`
	Resolution  string              `json:"resolution" valid:"length(0|32)"`
	Geolocation *models.Geolocation `json:"geolocation"`
	TypedText   string              `json:"typed_text" valid:"length(0|256)"`
	TypingMs    int64               `json:"typing_ms"`
}

// Decode reads a JSON request body.
func Decode(w http.ResponseWriter, r *http.Request) (*Request, error) {
	var req Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}

	return validate(&req)
}

// FromForm reads the fields posted by the household page. Missing coordinates mean
// the browser has no position fix yet.
func FromForm(r *http.Request) (*Request, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("invalid form data: %w", err)
	}

	req := Request{
		Resolution: r.PostFormValue("resolution"),
		TypedText:  r.PostFormValue("typed_text"),
	}

	if ms := r.PostFormValue("typing_ms"); ms != "" {
		parsed, err := strconv.ParseInt(ms, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid typing_ms: %w", err)
		}
		req.TypingMs = parsed
	}

	lat, lon := r.PostFormValue("latitude"), r.PostFormValue("longitude")
	if lat != "" || lon != "" {
		geo := models.Geolocation{}
		var err error
		if geo.Latitude, err = strconv.ParseFloat(lat, 64); err != nil {
			return nil, fmt.Errorf("invalid latitude: %w", err)
		}
		if geo.Longitude, err = strconv.ParseFloat(lon, 64); err != nil {
			return nil, fmt.Errorf("invalid longitude: %w", err)
		}
		if acc := r.PostFormValue("accuracy"); acc != "" {
			if geo.Accuracy, err = strconv.ParseFloat(acc, 64); err != nil {
				return nil, fmt.Errorf("invalid accuracy: %w", err)
			}
		}
		req.Geolocation = &geo
	}

	return validate(&req)
}

func validate(req *Request) (*Request, error) {
	valid, err := govalidator.ValidateStruct(req)
	if !valid || err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return req, nil
}

// Input turns the request into collector input for r.
func (req *Request) Input(r *http.Request) collector.Input {
	ua := req.UserAgent
	if strings.TrimSpace(ua) == "" {
		ua = r.UserAgent()
	}

	return collector.Input{
		RequestIP:     collector.ClientIP(r),
		UserAgent:     ua,
		Resolution:    req.Resolution,
		Geolocation:   req.Geolocation,
		TypedText:     req.TypedText,
		TypingElapsed: time.Duration(req.TypingMs) * time.Millisecond,
	}
}

// Status maps a domain error onto an HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, collector.ErrInvalidReading):
		return http.StatusUnprocessableEntity
	case errors.Is(err, household.ErrNotEnrolled):
		return http.StatusNotFound
	case errors.Is(err, household.ErrAlreadyEnrolled):
		return http.StatusConflict
	case errors.Is(err, storage.ErrInvalidHouseholdID):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Message is the client facing text for err. Internal errors are not echoed.
func Message(err error) string {
	if Status(err) == http.StatusInternalServerError {
		return "verification is temporarily unavailable, try again"
	}
	return err.Error()
}

// WriteJSON writes body with status.
func WriteJSON(logger *logrus.Logger, w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.WithError(err).Error("Failed to write response")
	}
}

// WriteError writes err as a JSON error with the status Status picks.
func WriteError(logger *logrus.Logger, w http.ResponseWriter, err error) {
	status := Status(err)
	if status == http.StatusInternalServerError {
		logger.WithError(err).Error("request failed")
	} else {
		logger.WithError(err).Debug("request rejected")
	}

	WriteJSON(logger, w, status, map[string]string{"error": Message(err)})
}
