package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/websapdev/ai-visibility/internal/models"
	"github.com/websapdev/ai-visibility/internal/visibility"
)

// VisibilityService is what the HTTP layer needs from the visibility service
type VisibilityService interface {
	RunPoll(ctx context.Context, brandID string) (*models.PollResult, error)
	GetOverview(ctx context.Context, brandID string) (*models.Overview, error)
	GetMetrics() string
}

type runRequest struct {
	BrandID string `json:"brandId"`
}

type runResponse struct {
	Success    bool `json:"success"`
	NewAnswers int  `json:"newAnswers"`
}

type errorResponse struct {
	Error string `json:"error"`
	// Set when an aborted poll had already committed answers
	NewAnswers *int `json:"newAnswers,omitempty"`
}

// statusClientClosedRequest is the nginx convention for a request the client
// abandoned before the response was written
const statusClientClosedRequest = 499

// NewRouter registers the visibility endpoints plus health and metrics
func NewRouter(svc VisibilityService) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	router.HandleFunc("/metrics", metricsHandler(svc)).Methods("GET")
	router.HandleFunc("/visibility/run", runHandler(svc)).Methods("POST")
	router.HandleFunc("/brands/{brandId}/visibility/overview", overviewHandler(svc)).Methods("GET")

	return router
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func metricsHandler(svc VisibilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(svc.GetMetrics()))
	}
}

func runHandler(svc VisibilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req runRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
				return
			}
		}
		if req.BrandID == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "brandId is required"})
			return
		}

		result, err := svc.RunPoll(r.Context(), req.BrandID)
		if err != nil {
			resp := errorResponse{Error: err.Error()}
			if result != nil {
				resp.NewAnswers = &result.NewAnswers
			}
			writeErrorResponse(w, r, err, resp)
			return
		}

		writeJSON(w, http.StatusOK, runResponse{Success: true, NewAnswers: result.NewAnswers})
	}
}

func overviewHandler(svc VisibilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		overview, err := svc.GetOverview(r.Context(), mux.Vars(r)["brandId"])
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, overview)
	}
}

// statusFor maps the visibility error taxonomy to HTTP status codes
func statusFor(err error) int {
	var fetchErr *visibility.FetchError
	switch {
	case errors.Is(err, visibility.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, visibility.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeErrorResponse(w, r, err, errorResponse{Error: err.Error()})
}

func writeErrorResponse(w http.ResponseWriter, r *http.Request, err error, resp errorResponse) {
	status := statusFor(err)
	entry := logrus.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": status,
	})
	if status >= http.StatusInternalServerError {
		entry.Errorf("Request failed: %v", err)
	} else {
		entry.Warnf("Request rejected: %v", err)
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("Failed to write response: %v", err)
	}
}
