package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/schemawatch/schemawatch/internal/state"
	"github.com/schemawatch/schemawatch/pkg/diff"
	"github.com/schemawatch/schemawatch/pkg/graph"
	"github.com/schemawatch/schemawatch/pkg/schema"
)

// errorResponse is the JSON body of every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

// decodeBody decodes the request body into v, enforcing the size cap.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// storeError maps store failures to HTTP statuses.
func (s *Server) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, state.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleNormalize turns a raw payload into a canonical snapshot. The
// normalizer is total, so any valid JSON body yields a 200.
func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	var raw any
	if !s.decodeBody(w, r, &raw) {
		return
	}
	s.writeJSON(w, http.StatusOK, schema.Normalize(raw))
}

// diffRequest carries the two raw payloads to compare. Either side may
// be absent and is then treated as an empty snapshot.
type diffRequest struct {
	Previous json.RawMessage `json:"previous"`
	Next     json.RawMessage `json:"next"`
}

// diffResponse is the diff plus its summary counts.
type diffResponse struct {
	HasChanges bool         `json:"hasChanges"`
	Summary    diff.Summary `json:"summary"`
	*diff.Diff
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	var req diffRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	previous, err := normalizeRaw(req.Previous)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid previous payload: "+err.Error())
		return
	}
	next, err := normalizeRaw(req.Next)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid next payload: "+err.Error())
		return
	}

	d := diff.Snapshots(previous, next)
	s.writeJSON(w, http.StatusOK, diffResponse{
		HasChanges: d.HasChanges(),
		Summary:    d.Summarize(),
		Diff:       d,
	})
}

// normalizeRaw decodes one optional raw payload. A missing or null
// payload yields a nil snapshot, which the differ treats as empty.
func normalizeRaw(msg json.RawMessage) (*schema.Snapshot, error) {
	if len(msg) == 0 || string(msg) == "null" {
		return nil, nil
	}
	var raw any
	if err := json.Unmarshal(msg, &raw); err != nil {
		return nil, err
	}
	return schema.Normalize(raw), nil
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	var raw any
	if !s.decodeBody(w, r, &raw) {
		return
	}
	s.writeJSON(w, http.StatusOK, graph.Build(schema.Normalize(raw)))
}

func (s *Server) handleSnapshotList(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.ListSnapshots(r.URL.Query().Get("database"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	if records == nil {
		records = []*state.SnapshotRecord{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleSnapshotGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetSnapshot(chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSnapshotGraph(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetSnapshot(chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.graphForStored(rec))
}

// driftResponse reports drift between the two latest stored snapshots
// of a database.
type driftResponse struct {
	Database   string       `json:"database"`
	PreviousID string       `json:"previousId,omitempty"`
	NextID     string       `json:"nextId"`
	HasChanges bool         `json:"hasChanges"`
	Summary    diff.Summary `json:"summary"`
	*diff.Diff
}

// handleDrift diffs the two most recent snapshots of a database. With
// only one snapshot stored, the previous side is treated as empty.
func (s *Server) handleDrift(w http.ResponseWriter, r *http.Request) {
	database := r.URL.Query().Get("database")
	if database == "" {
		s.writeError(w, http.StatusBadRequest, "missing database query parameter")
		return
	}

	latest, err := s.store.LatestSnapshot(database)
	if err != nil {
		s.storeError(w, err)
		return
	}

	resp := driftResponse{Database: database, NextID: latest.ID}

	var previousSnap *schema.Snapshot
	previous, err := s.store.ResolveSnapshot(state.SnapshotRef{Database: database, Offset: 1})
	switch {
	case err == nil:
		previousSnap = previous.Snapshot
		resp.PreviousID = previous.ID
	case errors.Is(err, state.ErrNotFound):
		// First capture of this database: everything reads as added.
	default:
		s.storeError(w, err)
		return
	}

	d := diff.Snapshots(previousSnap, latest.Snapshot)
	resp.HasChanges = d.HasChanges()
	resp.Summary = d.Summarize()
	resp.Diff = d
	s.writeJSON(w, http.StatusOK, resp)
}
