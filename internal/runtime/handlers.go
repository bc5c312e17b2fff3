package runtime

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/podforge/podforge-core/internal/jobstore"
)

type renderRequest struct {
	Script string `json:"script"`
}

type renderResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

type renderStatusResponse struct {
	RunID          string           `json:"run_id"`
	Status         string           `json:"status"`
	EpisodePath    string           `json:"episode_path,omitempty"`
	TranscriptPath string           `json:"transcript_path,omitempty"`
	Events         []jobstore.Event `json:"events,omitempty"`
}

// handleRenders accepts a script and starts a render in the background. The
// response carries the run id; progress is observable via the job store and
// the bus.
func (r *Runtime) handleRenders(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body renderRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(body.Script) == "" {
			http.Error(w, "script must not be empty", http.StatusBadRequest)
			return
		}

		runID := uuid.NewString()
		r.runWG.Add(1)
		go func() {
			defer r.runWG.Done()
			if _, err := r.pipe.RenderRun(ctx, runID, body.Script); err != nil {
				r.logger.Warn("render failed",
					slog.String("run_id", runID),
					slog.String("error", err.Error()))
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(renderResponse{RunID: runID, Status: jobstore.StatusRunning})
	}
}

// handleRenderStatus reports a run's state and its recorded chunk events.
func (r *Runtime) handleRenderStatus(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	runID := strings.TrimPrefix(req.URL.Path, "/v1/renders/")
	if runID == "" || strings.Contains(runID, "/") {
		http.Error(w, "invalid run id", http.StatusBadRequest)
		return
	}

	run, err := r.store.GetRun(req.Context(), runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}
		r.logger.Error("failed to fetch run", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	events, err := r.store.ListRunEvents(req.Context(), runID, 500)
	if err != nil {
		r.logger.Warn("failed to list run events", slog.String("error", err.Error()))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(renderStatusResponse{
		RunID:          run.RunID,
		Status:         run.Status,
		EpisodePath:    run.EpisodePath,
		TranscriptPath: run.TranscriptPath,
		Events:         events,
	})
}
