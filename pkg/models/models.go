package models

import (
	"slices"
	"time"
)

const (
	// UnknownIP is recorded when the public address could not be determined.
	// It never counts as a match.
	UnknownIP = "unknown"

	UnknownResolution = "unknown"

	DeviceClassDesktop = "Desktop"
	DeviceClassMobile  = "Mobile"

	DefaultHouseholdID = "default"
)

// Device is the classification of a raw user-agent string.
type Device struct {
	OS          string `json:"os"`
	Browser     string `json:"browser"`
	DeviceClass string `json:"device_class"`
}

// Geolocation is a single reading reported by the browser.
type Geolocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

// Sample is a freshly collected device fingerprint. Samples are never persisted.
type Sample struct {
	IP          string  `json:"ip"`
	IPCountry   string  `json:"ip_country,omitempty"`
	OS          string  `json:"os"`
	Browser     string  `json:"browser"`
	DeviceClass string  `json:"device_class"`
	Resolution  string  `json:"resolution"`
	TypingSpeed int     `json:"typing_speed"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// Baseline is the enrolled host fingerprint of a household.
type Baseline struct {
	HouseholdID string `json:"household_id"`
	Revision    string `json:"revision"`
	Sample
	CreatedAt time.Time `json:"created_at"`
}

// HostClaim marks a browser session as the one that enrolled a baseline revision.
type HostClaim struct {
	HouseholdID string
	Revision    string
}

// RoleAdmin allows resetting household baselines.
const RoleAdmin = "admin"

// User is an authenticated administrator.
type User struct {
	Email string
	Roles []string
}

// HasRole reports whether the user was granted role.
func (u *User) HasRole(role string) bool {
	return u != nil && slices.Contains(u.Roles, role)
}
