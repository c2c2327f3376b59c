package server

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/gamemath"
)

const maxImportSize = 32 << 20

type importZipResponse struct {
	OK      bool   `json:"ok"`
	GameID  string `json:"game_id,omitempty"`
	Message string `json:"message,omitempty"`
}

// handleImportZip accepts a ZIP exported from GameCrafter holding a slot
// definition (math.json, game.yaml, ...) and optionally a reel file
// (reels*.json / reels*.yaml with reel1..reelN). The reel file replaces the
// definition's strips. model_id comes from ?model_id=, then the
// definition, then the definition's file name.
//
// Request:
//
//	POST /games/import?model_id=...
//	Content-Type: application/zip (body is the ZIP bytes)
func (s *Server) handleImportZip(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportSize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, importZipResponse{
			OK:      false,
			Message: fmt.Sprintf("failed to read body: %v", err),
		})
		return
	}
	if len(body) == 0 {
		writeJSON(w, http.StatusBadRequest, importZipResponse{
			OK:      false,
			Message: "empty request body",
		})
		return
	}

	math, err := definitionFromZip(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, importZipResponse{
			OK:      false,
			Message: err.Error(),
		})
		return
	}
	if id := strings.TrimSpace(r.URL.Query().Get("model_id")); id != "" {
		math.ModelID = id
	}
	if err := s.registry.Register(math); err != nil {
		writeErr(w, err)
		return
	}
	s.log.Info("definition imported", zap.String("game", math.ModelID), zap.Int("reels", len(math.Reels)))
	writeJSON(w, http.StatusOK, importZipResponse{
		OK:      true,
		GameID:  math.ModelID,
		Message: "definition imported",
	})
}

// definitionFromZip finds the definition and reel file in a bundle.
func definitionFromZip(zipBytes []byte) (*gamemath.GameMath, error) {
	zr, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return nil, fmt.Errorf("invalid zip: %w", err)
	}
	var def, reels *zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		base := strings.ToLower(path.Base(strings.ReplaceAll(f.Name, "\\", "/")))
		switch path.Ext(base) {
		case ".json", ".yaml", ".yml":
		default:
			continue
		}
		switch {
		case strings.HasPrefix(base, "reels"):
			if reels == nil {
				reels = f
			}
		case strings.HasPrefix(base, "project_"):
			// GameCrafter project metadata, not game math.
		case def == nil:
			def = f
		}
	}
	if def == nil {
		return nil, errors.New("no game definition (json/yaml) found in zip")
	}

	data, err := readZipFile(def)
	if err != nil {
		return nil, err
	}
	name := path.Base(strings.ReplaceAll(def.Name, "\\", "/"))
	math, err := gamemath.Parse(data, path.Ext(name))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	if math.ModelID == "" {
		math.ModelID = strings.TrimSuffix(name, path.Ext(name))
	}
	if reels != nil {
		data, err := readZipFile(reels)
		if err != nil {
			return nil, err
		}
		strips, err := gamemath.ParseReels(data, path.Ext(reels.Name))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", reels.Name, err)
		}
		name := math.Name
		math = math.WithReels(strips, reels.Name)
		if name != "" {
			math.Name = name
		}
	}
	return math, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxImportSize+1))
	if err != nil {
		return nil, fmt.Errorf("read zip entry %s: %w", f.Name, err)
	}
	if len(data) > maxImportSize {
		return nil, fmt.Errorf("zip entry %s exceeds %d bytes", f.Name, maxImportSize)
	}
	return data, nil
}
