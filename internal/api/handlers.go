package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/NixVir/whereami-web/internal/catalog"
	"github.com/NixVir/whereami-web/internal/displacement"
	"github.com/NixVir/whereami-web/internal/engine"
	"github.com/NixVir/whereami-web/internal/event"
	"github.com/NixVir/whereami-web/internal/forces"
	"github.com/NixVir/whereami-web/internal/geocode"
	"github.com/NixVir/whereami-web/internal/httputil"
	"github.com/NixVir/whereami-web/internal/kinematics"
	"github.com/NixVir/whereami-web/internal/metrics"
	"github.com/NixVir/whereami-web/internal/report"
	"github.com/NixVir/whereami-web/internal/spacecraft"
	"github.com/NixVir/whereami-web/internal/trajectory"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

type handlers struct {
	engine  *engine.Engine
	logger  *slog.Logger
	timeout time.Duration
}

// calculateRequest is the body of POST /api/v1/calculate. Pointer fields
// distinguish "absent" from zero.
type calculateRequest struct {
	BirthDate      string   `json:"birth_date"`
	BirthTime      string   `json:"birth_time"`
	BirthTimezone  string   `json:"birth_timezone"`
	BirthLatitude  *float64 `json:"birth_latitude"`
	BirthLongitude *float64 `json:"birth_longitude"`
	BirthAddress   string   `json:"birth_address"`

	CurrentDate      string   `json:"current_date"`
	CurrentTime      string   `json:"current_time"`
	CurrentTimezone  string   `json:"current_timezone"`
	CurrentLatitude  *float64 `json:"current_latitude"`
	CurrentLongitude *float64 `json:"current_longitude"`
	CurrentAddress   string   `json:"current_address"`

	Reverse bool `json:"reverse"`
	Samples int  `json:"samples"`
	Top     int  `json:"top"`
}

// toEngine validates presence rules and converts to an engine request.
func (c calculateRequest) toEngine() (engine.Request, error) {
	if strings.TrimSpace(c.BirthDate) == "" {
		return engine.Request{}, errors.New("birth_date is required")
	}
	if c.BirthLatitude == nil || c.BirthLongitude == nil {
		return engine.Request{}, errors.New("birth_latitude and birth_longitude are required")
	}
	if (c.CurrentLatitude == nil) != (c.CurrentLongitude == nil) {
		return engine.Request{}, errors.New("current_latitude and current_longitude must be given together")
	}
	if c.Samples < 0 || c.Samples > trajectory.MaxSamples {
		return engine.Request{}, fmt.Errorf("samples must be 0-%d", trajectory.MaxSamples)
	}
	if c.Top < 0 {
		return engine.Request{}, errors.New("top must not be negative")
	}

	req := engine.Request{
		Birth: event.Input{
			Date:      c.BirthDate,
			Time:      c.BirthTime,
			Timezone:  c.BirthTimezone,
			Latitude:  *c.BirthLatitude,
			Longitude: *c.BirthLongitude,
			Address:   c.BirthAddress,
		},
		Current: event.Input{
			Date:     c.CurrentDate,
			Time:     c.CurrentTime,
			Timezone: c.CurrentTimezone,
			Address:  c.CurrentAddress,
		},
		Reverse: c.Reverse,
		Samples: c.Samples,
		Top:     c.Top,
	}
	if c.CurrentLatitude != nil {
		req.CurrentLocation = &engine.Location{
			Latitude:  *c.CurrentLatitude,
			Longitude: *c.CurrentLongitude,
			Address:   c.CurrentAddress,
		}
	}
	return req, nil
}

type calculateResponse struct {
	Success bool `json:"success"`
	report.Report
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func (h *handlers) calculate(w http.ResponseWriter, r *http.Request) {
	var body calculateRequest
	if err := decodeBody(w, r, &body); err != nil {
		metrics.ObserveCalculation(metrics.OutcomeInvalid)
		httputil.WriteError(w, http.StatusBadRequest, httputil.CodeInvalidInput, err.Error())
		return
	}
	req, err := body.toEngine()
	if err != nil {
		metrics.ObserveCalculation(metrics.OutcomeInvalid)
		httputil.WriteError(w, http.StatusBadRequest, httputil.CodeInvalidInput, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	rep, err := h.engine.Calculate(ctx, req)
	if err != nil {
		status := h.writeError(w, r, err)
		if status >= 500 {
			metrics.ObserveCalculation(metrics.OutcomeError)
		} else {
			metrics.ObserveCalculation(metrics.OutcomeInvalid)
		}
		return
	}
	metrics.ObserveCalculation(metrics.OutcomeOK)
	httputil.WriteJSON(w, http.StatusOK, calculateResponse{Success: true, Report: rep})
}

type geocodeRequest struct {
	Location string `json:"location"`
}

type geocodeResponse struct {
	Success bool `json:"success"`
	geocode.Place
}

func (h *handlers) geocode(w http.ResponseWriter, r *http.Request) {
	var body geocodeRequest
	if err := decodeBody(w, r, &body); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, httputil.CodeInvalidInput, err.Error())
		return
	}
	if strings.TrimSpace(body.Location) == "" {
		httputil.WriteError(w, http.StatusBadRequest, httputil.CodeInvalidInput, "location is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	place, err := h.engine.Geocode(ctx, body.Location)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, geocodeResponse{Success: true, Place: place})
}

type framesResponse struct {
	Success bool                      `json:"success"`
	Frames  []catalog.FrameDefinition `json:"frames"`
}

func (h *handlers) frames(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, framesResponse{Success: true, Frames: h.engine.Catalog().Frames()})
}

type forcesResponse struct {
	Success bool            `json:"success"`
	Catalog *forces.Catalog `json:"catalog"`
}

func (h *handlers) forces(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, forcesResponse{Success: true, Catalog: h.engine.Forces()})
}

type indexResponse struct {
	Service    string                  `json:"service"`
	Endpoints  []string                `json:"endpoints"`
	Spacecraft []spacecraft.Spacecraft `json:"spacecraft"`
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, indexResponse{
		Service: "whereami-web",
		Endpoints: []string{
			"POST /api/v1/calculate",
			"POST /api/v1/geocode",
			"GET /api/v1/frames",
			"GET /api/v1/forces",
			"GET /api/v1/stream/velocity",
			"GET /healthz",
			"GET /readyz",
			"GET /metrics",
		},
		Spacecraft: h.engine.Spacecraft().Spacecraft(),
	})
}

// writeError maps a domain error to its status and code and writes the
// envelope. Unexpected errors are logged and their message withheld.
func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) int {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			"request_id", RequestID(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		msg = "internal error"
	} else if status >= 500 {
		h.logger.Warn("upstream failure", "request_id", RequestID(r.Context()), "error", err)
	}
	httputil.WriteError(w, status, code, msg)
	return status
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, event.ErrInvalidEvent),
		errors.Is(err, kinematics.ErrOutOfRange),
		errors.Is(err, trajectory.ErrInvalidSamples),
		errors.Is(err, geocode.ErrInvalidQuery):
		return http.StatusBadRequest, httputil.CodeInvalidInput
	case errors.Is(err, displacement.ErrInvalidOrdering):
		return http.StatusUnprocessableEntity, httputil.CodeInvalidOrdering
	case errors.Is(err, geocode.ErrNotFound):
		return http.StatusNotFound, httputil.CodeNotFound
	case errors.Is(err, geocode.ErrUpstream),
		errors.Is(err, engine.ErrNoGeocoder),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusBadGateway, httputil.CodeUpstream
	default:
		return http.StatusInternalServerError, httputil.CodeInternal
	}
}
