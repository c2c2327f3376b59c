package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/gamemath"
	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/games"
)

type gameSummary struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Source    games.Source        `json:"source"`
	Reels     int                 `json:"reels"`
	Paylines  int                 `json:"paylines"`
	TotalBet  float64             `json:"total_bet"`
	MaxPayout float64             `json:"max_payout"`
	Valid     bool                `json:"valid"`
	Error     string              `json:"error,omitempty"`
	Stats     *gamemath.GameStats `json:"stats,omitempty"`
}

func summarize(e *games.Entry) gameSummary {
	out := gameSummary{ID: e.ID, Name: e.Name, Source: e.Source, Stats: e.Math.Stats}
	g, err := e.Math.Compile()
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.Valid = true
	out.Reels = g.NumReels()
	out.Paylines = len(g.Paylines())
	out.TotalBet = g.TotalBet()
	out.MaxPayout = g.MaxPayout()
	return out
}

// handleListGames returns every known definition (GET /games).
func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	entries := s.registry.List()
	list := make([]gameSummary, 0, len(entries))
	for _, e := range entries {
		list = append(list, summarize(e))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"games": list})
}

// handleGetGame returns the summary and full definition of one game.
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "gameID")
	e, ok := s.registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown game "+id, CodeGameNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"game": summarize(e),
		"math": e.Math,
	})
}

// handleRegisterGameMath stores game math for a game (POST /games/{gameID}/math). Body = full game math JSON.
func (s *Server) handleRegisterGameMath(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")
	var math gamemath.GameMath
	if err := json.NewDecoder(r.Body).Decode(&math); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", CodeInvalidBody)
		return
	}
	math.ModelID = strings.TrimSpace(math.ModelID)
	if math.ModelID == "" {
		math.ModelID = gameID
	}
	if math.ModelID != gameID {
		writeError(w, http.StatusBadRequest, "model_id does not match the game in the path", CodeInvalidBody)
		return
	}
	if math.Paytable.Len() == 0 {
		writeError(w, http.StatusBadRequest, "paytable required", CodeInvalidBody)
		return
	}
	if err := s.registry.Register(&math); err != nil {
		writeErr(w, err)
		return
	}
	resp := map[string]interface{}{
		"model_id": math.ModelID,
		"message":  "game math registered",
	}
	if math.Integrity != nil {
		resp["content_hash"] = math.Integrity.ContentHash
	}
	writeJSON(w, http.StatusOK, resp)
}
