package runtime

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/loqalabs/loqa-dictate/internal/control"
	"github.com/loqalabs/loqa-dictate/internal/jargon"
	"github.com/loqalabs/loqa-dictate/internal/pipeline"
)

const maxImportBytes = 1 << 20

func (r *Runtime) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", r.handleHealth)
	mux.HandleFunc("GET /readyz", r.handleReady)

	control.Routes(mux, r.comp.orch, r.logger)

	mux.HandleFunc("GET /v1/profiles", r.handleProfiles)
	mux.HandleFunc("POST /v1/profiles/import", r.handleImport)
	mux.HandleFunc("GET /v1/profiles/export", r.handleExport)
	mux.HandleFunc("POST /v1/profiles/{id}/{op}", r.handleProfileToggle)
	mux.HandleFunc("DELETE /v1/profiles/{id}", r.handleProfileDelete)

	mux.HandleFunc("GET /v1/settings", r.handleSettings)
	mux.HandleFunc("PUT /v1/settings", r.handleUpdateSettings)

	mux.HandleFunc("GET /v1/model", r.handleModel)
	mux.HandleFunc("POST /v1/model/load", r.handleModelLoad)
	mux.HandleFunc("POST /v1/model/unload", r.handleModelUnload)

	mux.HandleFunc("GET /v1/history", r.handleHistory)
	return mux
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	busOK := r.comp == nil || r.comp.bus == nil || r.comp.bus.Healthy()
	if r.ready.Load() && busOK {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	control.WriteJSON(w, status, map[string]string{"error": err.Error()})
}

func (r *Runtime) handleProfiles(w http.ResponseWriter, _ *http.Request) {
	control.WriteJSON(w, http.StatusOK, r.comp.catalog.Snapshot().Profiles)
}

func (r *Runtime) handleImport(w http.ResponseWriter, req *http.Request) {
	data, err := io.ReadAll(io.LimitReader(req.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	report, err := r.comp.catalog.ImportPacks(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := r.persistPacks(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	control.WriteJSON(w, http.StatusOK, report)
}

func (r *Runtime) handleExport(w http.ResponseWriter, req *http.Request) {
	format := req.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	data, err := r.comp.catalog.ExportPacks(format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	contentType := "application/json"
	if format == "yaml" {
		contentType = "application/yaml"
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(data)
}

func (r *Runtime) handleProfileToggle(w http.ResponseWriter, req *http.Request) {
	var enabled bool
	switch req.PathValue("op") {
	case "enable":
		enabled = true
	case "disable":
	default:
		http.NotFound(w, req)
		return
	}
	id := req.PathValue("id")
	if err := r.comp.catalog.SetEnabled(id, enabled); err != nil {
		writeError(w, catalogStatus(err), err)
		return
	}
	p, _ := r.comp.catalog.Get(id)
	control.WriteJSON(w, http.StatusOK, p)
}

func (r *Runtime) handleProfileDelete(w http.ResponseWriter, req *http.Request) {
	if err := r.comp.catalog.Remove(req.PathValue("id")); err != nil {
		writeError(w, catalogStatus(err), err)
		return
	}
	if err := r.persistPacks(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func catalogStatus(err error) int {
	switch {
	case errors.Is(err, jargon.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, jargon.ErrReadOnly):
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

func (r *Runtime) persistPacks() error {
	r.packsMu.Lock()
	defer r.packsMu.Unlock()
	if r.cfg.Jargon.PacksFile == "" {
		return nil
	}
	if err := r.comp.catalog.SaveFile(r.cfg.Jargon.PacksFile); err != nil {
		r.logger.Error("failed to persist packs", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// settingsDoc is the wire form of pipeline.Settings.
type settingsDoc struct {
	ManualProfiles    []string            `json:"manual_profiles"`
	CustomTerms       []string            `json:"custom_terms"`
	CustomCorrections []jargon.Correction `json:"custom_corrections"`
	FuzzyThreshold    float64             `json:"fuzzy_threshold"`
	PostProcess       bool                `json:"post_process"`
	PromptID          string              `json:"prompt_id"`
	AutoPrompt        bool                `json:"auto_prompt"`
	Expansion         bool                `json:"expansion"`
}

func toSettingsDoc(s pipeline.Settings) settingsDoc {
	return settingsDoc{
		ManualProfiles:    s.ManualProfiles,
		CustomTerms:       s.Custom.Terms,
		CustomCorrections: s.Custom.Corrections,
		FuzzyThreshold:    s.FuzzyThreshold,
		PostProcess:       s.PostProcess,
		PromptID:          s.PromptID,
		AutoPrompt:        s.AutoPrompt,
		Expansion:         s.Expansion,
	}
}

func (d settingsDoc) settings() pipeline.Settings {
	return pipeline.Settings{
		ManualProfiles: d.ManualProfiles,
		Custom:         jargon.Custom{Terms: d.CustomTerms, Corrections: d.CustomCorrections},
		FuzzyThreshold: d.FuzzyThreshold,
		PostProcess:    d.PostProcess,
		PromptID:       d.PromptID,
		AutoPrompt:     d.AutoPrompt,
		Expansion:      d.Expansion,
	}
}

func (r *Runtime) handleSettings(w http.ResponseWriter, _ *http.Request) {
	control.WriteJSON(w, http.StatusOK, toSettingsDoc(r.comp.orch.Settings()))
}

// handleUpdateSettings merges the request body over the current settings.
// Changes apply from the next utterance.
func (r *Runtime) handleUpdateSettings(w http.ResponseWriter, req *http.Request) {
	doc := toSettingsDoc(r.comp.orch.Settings())
	if err := json.NewDecoder(io.LimitReader(req.Body, maxImportBytes)).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	for _, id := range doc.ManualProfiles {
		if _, ok := r.comp.catalog.Get(id); !ok {
			writeError(w, http.StatusBadRequest, errors.New("unknown profile "+id))
			return
		}
	}
	if doc.FuzzyThreshold < 0 || doc.FuzzyThreshold > 1 {
		writeError(w, http.StatusBadRequest, errors.New("fuzzy_threshold must be between 0 and 1"))
		return
	}
	r.comp.orch.SetSettings(doc.settings())
	control.WriteJSON(w, http.StatusOK, toSettingsDoc(r.comp.orch.Settings()))
}

func (r *Runtime) handleModel(w http.ResponseWriter, _ *http.Request) {
	control.WriteJSON(w, http.StatusOK, r.comp.models.Status())
}

func (r *Runtime) handleModelLoad(w http.ResponseWriter, req *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if req.ContentLength != 0 {
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	if body.ID == "" {
		body.ID = r.comp.models.Status().ID
	}
	if err := r.comp.models.Switch(req.Context(), body.ID); err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	control.WriteJSON(w, http.StatusOK, r.comp.models.Status())
}

func (r *Runtime) handleModelUnload(w http.ResponseWriter, req *http.Request) {
	if err := r.comp.models.Unload(req.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	control.WriteJSON(w, http.StatusOK, r.comp.models.Status())
}

func (r *Runtime) handleHistory(w http.ResponseWriter, req *http.Request) {
	limit := 50
	if v := req.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}
	items, err := r.comp.store.ListDictations(req.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	control.WriteJSON(w, http.StatusOK, items)
}
