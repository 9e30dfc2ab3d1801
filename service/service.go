// Package service - the detection endpoints: a request carrying a base64
// image is decoded, run through a detector, and filtered to the endpoint's
// labels.
package service

import (
	"context"
	"time"

	"github.com/nvr-ai/vehicle-vision/codec"
	"github.com/nvr-ai/vehicle-vision/detection"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Endpoint names, used in logs.
const (
	EndpointPlate   = "plate"
	EndpointVehicle = "vehicle"
	EndpointDamage  = "damage"
)

// Reasons reported by empty outcomes.
const (
	ReasonPlateNotFound   = "License plate not found"
	ReasonVehicleNotFound = "Vehicle not found"
	ReasonNoDamage        = "No vehicle damage detected"
)

// DamageMarker is the substring identifying damage classes.
const DamageMarker = "damaged"

// Request is the inbound payload of every endpoint.
type Request struct {
	// Image is base64 image data, optionally a data URI.
	Image string `json:"image"`
	// Origin identifies the caller. It is only logged.
	Origin string `json:"origin"`
}

// Detectors resolves detectors by name; detection.Registry implements it.
type Detectors interface {
	Get(name string) (detection.Detector, error)
}

// Service implements the detection endpoints.
type Service struct {
	detectors Detectors
	decoder   *codec.Decoder
	logger    zerolog.Logger
}

// New creates a service.
//
// Arguments:
//   - detectors: The detector lookup, usually an initialized registry.
//   - decoder: The image decoder.
//   - logger: The request logger.
//
// Returns:
//   - *Service: The service, safe for concurrent use.
//
// Example:
//
// ```go
//
//	svc := service.New(registry, codec.NewDecoder(logger), logger)
//	outcome, err := svc.DetectPlates(ctx, service.Request{Image: payload})
//
// ```
func New(detectors Detectors, decoder *codec.Decoder, logger zerolog.Logger) *Service {
	return &Service{
		detectors: detectors,
		decoder:   decoder,
		logger:    logger.With().Str("component", "service").Logger(),
	}
}

// DetectPlates returns the license plates found in the request image.
func (s *Service) DetectPlates(ctx context.Context, req Request) (detection.Outcome, error) {
	return s.run(ctx, EndpointPlate, req, detection.PlateModel, func(detection.Detector) detection.Labels {
		return detection.PlateVehicleLabels
	}, detection.LabelEquals(detection.LabelPlate), ReasonPlateNotFound)
}

// DetectVehicles returns the vehicles found in the request image.
func (s *Service) DetectVehicles(ctx context.Context, req Request) (detection.Outcome, error) {
	return s.run(ctx, EndpointVehicle, req, detection.PlateModel, func(detection.Detector) detection.Labels {
		return detection.PlateVehicleLabels
	}, detection.LabelEquals(detection.LabelVehicle), ReasonVehicleNotFound)
}

// DetectDamage returns the damage regions found in the request image. Labels
// come from the damage model; any label containing "damaged" matches.
func (s *Service) DetectDamage(ctx context.Context, req Request) (detection.Outcome, error) {
	return s.run(ctx, EndpointDamage, req, detection.DamageModel, detection.Detector.Names,
		detection.LabelContains(DamageMarker), ReasonNoDamage)
}

// Detect dispatches to an endpoint by name.
func (s *Service) Detect(ctx context.Context, endpoint string, req Request) (detection.Outcome, error) {
	switch endpoint {
	case EndpointPlate:
		return s.DetectPlates(ctx, req)
	case EndpointVehicle:
		return s.DetectVehicles(ctx, req)
	case EndpointDamage:
		return s.DetectDamage(ctx, req)
	default:
		return detection.Outcome{}, errors.Errorf("unknown endpoint %q", endpoint)
	}
}

func (s *Service) run(
	ctx context.Context,
	endpoint string,
	req Request,
	model string,
	labels func(detection.Detector) detection.Labels,
	keep detection.Predicate,
	reason string,
) (outcome detection.Outcome, err error) {
	start := time.Now()
	defer func() {
		event := s.logger.Info()
		if err != nil {
			event = s.logger.Error().Err(err)
		}
		event.Str("endpoint", endpoint).
			Str("origin", req.Origin).
			Int("matches", len(outcome.Matches)).
			Dur("elapsed", time.Since(start)).
			Msg("request handled")
	}()

	detector, err := s.detectors.Get(model)
	if err != nil {
		return detection.Outcome{}, err
	}

	decoded, err := s.decoder.DecodeString(req.Image)
	if err != nil {
		return detection.Outcome{}, err
	}

	dets, err := detector.Predict(ctx, decoded.Pixels)
	if err != nil {
		return detection.Outcome{}, errors.Wrapf(err, "%s detection", endpoint)
	}

	return detection.Select(detection.Label(dets, labels(detector)), keep, reason), nil
}
