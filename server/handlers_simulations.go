package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/run"
	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/sim"
)

const defaultListLimit = 50

// simulationView is a run record plus live progress.
type simulationView struct {
	*run.Record
	Done     int64        `json:"done"`
	Progress float64      `json:"progress"`
	Summary  *sim.Summary `json:"summary,omitempty"`
}

func newView(rec *run.Record, done int64) simulationView {
	v := simulationView{Record: rec, Done: done}
	if rec.Report != nil {
		v.Done = rec.Spins
		sum := rec.Report.Summary()
		v.Summary = &sum
	}
	if rec.Spins > 0 {
		v.Progress = float64(v.Done) / float64(rec.Spins)
	}
	return v
}

// handleStartSimulation starts a run (POST /simulations). Body:
// {"game_id": "...", "spins": 1000000, "workers": 0, "seed": 0}.
func (s *Server) handleStartSimulation(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", CodeInvalidBody)
		return
	}
	req.GameID = strings.TrimSpace(req.GameID)
	if req.GameID == "" {
		writeError(w, http.StatusBadRequest, "game_id required", CodeInvalidBody)
		return
	}
	if req.Spins == 0 {
		req.Spins = s.cfg.DefaultSpins
	}
	if req.Spins > s.cfg.MaxSpins {
		writeJSON(w, http.StatusBadRequest, APIError{
			Error:   fmt.Sprintf("spins exceeds the limit of %d", s.cfg.MaxSpins),
			Code:    CodeInvalidConfig,
			Message: "spins too large",
			Field:   "spins",
		})
		return
	}
	if req.Workers == 0 {
		req.Workers = s.cfg.Workers
	}
	if req.Seed == 0 {
		req.Seed = s.cfg.Seed
	}
	j, err := s.jobs.start(r.Context(), req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, j.view())
}

// handleListSimulations lists stored runs, newest first
// (GET /simulations?game_id=&limit=).
func (s *Server) handleListSimulations(w http.ResponseWriter, r *http.Request) {
	f := run.Filter{GameID: r.URL.Query().Get("game_id"), Limit: defaultListLimit}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer", CodeInvalidBody)
			return
		}
		f.Limit = n
	}
	recs, err := s.runs.List(r.Context(), f)
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]simulationView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, s.view(rec))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"simulations": out})
}

// view prefers the live record and progress of a running job over rec.
func (s *Server) view(rec *run.Record) simulationView {
	if j, ok := s.jobs.get(rec.ID); ok {
		return j.view()
	}
	return newView(rec, 0)
}

func (j *job) view() simulationView {
	done, _ := j.sim.Progress()
	return newView(j.record(), done)
}

// lookup returns the live record of a running job or the stored one.
func (s *Server) lookup(r *http.Request, id string) (*run.Record, error) {
	if j, ok := s.jobs.get(id); ok {
		return j.record(), nil
	}
	return s.runs.Get(r.Context(), id)
}

func (s *Server) handleGetSimulation(w http.ResponseWriter, r *http.Request) {
	rec, err := s.lookup(r, chi.URLParam(r, "runID"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(rec))
}

// handleSimulationReport renders the text report of a finalized run.
func (s *Server) handleSimulationReport(w http.ResponseWriter, r *http.Request) {
	rec, err := s.lookup(r, chi.URLParam(r, "runID"))
	if err != nil {
		writeErr(w, err)
		return
	}
	if rec.Report == nil {
		writeError(w, http.StatusConflict, "simulation is "+rec.State, CodeNotFinished)
		return
	}
	var buf bytes.Buffer
	if err := sim.WriteText(&buf, rec.Report); err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleCancelSimulation stops a running simulation (DELETE /simulations/{id}).
func (s *Server) handleCancelSimulation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "runID")
	if j, ok := s.jobs.get(id); ok {
		j.cancel()
		<-j.done
		writeJSON(w, http.StatusOK, j.view())
		return
	}
	rec, err := s.runs.Get(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeError(w, http.StatusConflict, "simulation is already "+rec.State, CodeAlreadyStopped)
}
