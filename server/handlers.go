package server

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/papercomputeco/scribe/pkg/prompt"
	"github.com/papercomputeco/scribe/pkg/utils"
)

// ErrorResponse is the JSON body of every non-stream error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ValidationErrorResponse is returned with 422 when the visit is unusable.
type ValidationErrorResponse struct {
	Error string `json:"error"`

	// Missing lists the JSON names of absent or empty required fields.
	Missing []string `json:"missing,omitempty"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:   "ok",
		Version:  utils.Version,
		Provider: s.generator.Name(),
		Model:    s.generator.Model(),
	})
}

func (s *Server) metricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
}

// handleIdea streams a business idea. It takes no input.
func (s *Server) handleIdea(c *fiber.Ctx) error {
	return s.stream(c, "idea", prompt.Idea())
}

// handleVisit validates a Visit body and streams its summary.
func (s *Server) handleVisit(c *fiber.Ctx) error {
	var visit prompt.Visit
	if err := json.Unmarshal(c.Body(), &visit); err != nil {
		return s.rejectVisit(c, ValidationErrorResponse{Error: "request body must be a JSON visit object"})
	}

	if err := s.validate.Struct(visit); err != nil {
		resp := ValidationErrorResponse{Error: "missing required fields"}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				resp.Missing = append(resp.Missing, fe.Field())
			}
		}
		return s.rejectVisit(c, resp)
	}

	return s.stream(c, "visit", prompt.ForVisit(visit))
}

func (s *Server) rejectVisit(c *fiber.Ctx, resp ValidationErrorResponse) error {
	s.metrics.validationRejections.Inc()
	s.logger.Info("rejected visit",
		"request_id", requestID(c),
		"error", resp.Error,
		"missing", resp.Missing,
	)
	return c.Status(fiber.StatusUnprocessableEntity).JSON(resp)
}
