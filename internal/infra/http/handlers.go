package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"miniprogram-ai-chat/internal/domain"
	"miniprogram-ai-chat/internal/domain/model"
	"miniprogram-ai-chat/internal/domain/ports/adapter"
	"miniprogram-ai-chat/internal/usecase"
)

// Every response carries a code discriminator: 0 success, 1 pending,
// negative values terminal failure with a human-readable error.
type submitResponse struct {
	Code  int    `json:"code"`
	JobID string `json:"job_id,omitempty"`
	Error string `json:"error,omitempty"`
}

type resultResponse struct {
	Code           int    `json:"code"`
	Status         string `json:"status,omitempty"`
	Reply          string `json:"reply,omitempty"`
	GeneratedImage string `json:"generated_image,omitempty"`
	Error          string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func chatSubmitHandler(jobs usecase.ChatJobUseCase, log *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req model.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, submitResponse{Code: -1, Error: "invalid request body"})
			return
		}

		id, err := jobs.Submit(r.Context(), &req)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrEmptyInput):
				writeJSON(w, http.StatusBadRequest, submitResponse{Code: -1, Error: err.Error()})
			case errors.Is(err, domain.ErrAIUnavailable):
				writeJSON(w, http.StatusServiceUnavailable, submitResponse{Code: -1, Error: err.Error()})
			default:
				log.Error().Err(err).Msg("chat submission failed")
				writeJSON(w, http.StatusInternalServerError, submitResponse{Code: -1, Error: "internal error"})
			}
			return
		}
		writeJSON(w, http.StatusOK, submitResponse{Code: 0, JobID: id})
	}
}

func modelsHandler(ai adapter.AIServiceAdapter, log *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		models, err := ai.ListModels(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("model listing failed")
			writeJSON(w, http.StatusBadGateway, map[string]any{"code": -1, "error": "model listing failed"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"code": 0, "models": models})
	}
}

func chatResultHandler(jobs usecase.ChatJobUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			JobID string `json:"job_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.JobID == "" {
			writeJSON(w, http.StatusBadRequest, resultResponse{Code: -1, Error: "job_id is required"})
			return
		}

		job, err := jobs.Poll(r.Context(), req.JobID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				writeJSON(w, http.StatusNotFound, resultResponse{Code: -1, Error: "job not found"})
				return
			}
			writeJSON(w, http.StatusInternalServerError, resultResponse{Code: -1, Error: "internal error"})
			return
		}

		switch job.Status {
		case model.ChatJobStatusProcessing:
			writeJSON(w, http.StatusOK, resultResponse{Code: 1, Status: "processing"})
		case model.ChatJobStatusSuccess:
			writeJSON(w, http.StatusOK, resultResponse{
				Code:           0,
				Status:         "success",
				Reply:          job.Result.Reply,
				GeneratedImage: job.Result.ImageURL,
			})
		default:
			writeJSON(w, http.StatusOK, resultResponse{Code: -1, Status: "fail", Error: job.LastError})
		}
	}
}
