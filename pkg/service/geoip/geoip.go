// Package geoip annotates public addresses with their country from a MaxMind
// City or Country database.
package geoip

import (
	"errors"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
	"github.com/sirupsen/logrus"
)

var ErrUnavailable = errors.New("geoip database not loaded")

type Service struct {
	reader *geoip2.Reader
	logger *logrus.Logger
}

// NewService opens the mmdb file at dbPath.
func NewService(logger *logrus.Logger, dbPath string) (*Service, error) {
	reader, err := geoip2.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("could not open geoip database: %w", err)
	}

	logger.WithField("path", dbPath).Info("loaded geoip database")

	return &Service{
		reader: reader,
		logger: logger,
	}, nil
}

// Country returns the ISO country code for ipAddress.
func (s *Service) Country(ipAddress string) (string, error) {
	if s == nil || s.reader == nil {
		return "", ErrUnavailable
	}

	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return "", fmt.Errorf("invalid ip address: %s", ipAddress)
	}

	record, err := s.reader.Country(ip)
	if err != nil {
		return "", fmt.Errorf("geoip lookup failed: %w", err)
	}

	return record.Country.IsoCode, nil
}

// Close releases the database.
func (s *Service) Close() error {
	if s == nil || s.reader == nil {
		return nil
	}
	return s.reader.Close()
}
