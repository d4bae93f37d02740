package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mattjoyce/msgcluster/internal/cluster"
	"github.com/mattjoyce/msgcluster/internal/codec"
	"github.com/mattjoyce/msgcluster/internal/snapshot"
)

const maxBodyBytes = 8 << 20

// handleHealthz handles GET /healthz (no auth).
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	nodes := countNodes(s.root)
	name := ""
	if reg := s.root.AsObject().Registry(); reg != nil {
		name = reg.Name()
	}
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, HealthzResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Cluster:       name,
		Nodes:         nodes,
	})
}

// handleTree handles GET /tree.
func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	tree := s.root.AsObject().Wrap()
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, tree)
}

// handleSubscribers handles GET /subscribers/{kind}/{key}.
func (s *Server) handleSubscribers(w http.ResponseWriter, r *http.Request) {
	kind, err := cluster.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	subs := s.root.AsObject().Subscribers(kind, chi.URLParam(r, "key"))
	s.mu.Unlock()

	out := make([]SubscriberResponse, 0, len(subs))
	for _, sub := range subs {
		out = append(out, SubscriberResponse{
			SubscriberType: sub.Subscriber.AsObject().Type(),
			Limit:          sub.Limit,
			Priority:       sub.Priority,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

// handleEmit handles POST /emit/{key}.
func (s *Server) handleEmit(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	req, err := decodeDispatchRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	root := s.root.AsObject()
	listeners := len(root.Subscribers(cluster.Events, key))
	err = root.EmitKw(key, req.Kwargs, req.Args...)
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("emit failed", "key", key, "error", err)
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, EmitResponse{Key: key, Listeners: listeners})
}

// handleCalculate handles POST /calculate/{key}.
func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	req, err := decodeDispatchRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	value, err := s.root.AsObject().CalculateKw(key, req.Initial, req.Kwargs, req.Args...)
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("calculate failed", "key", key, "error", err)
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, CalculateResponse{Key: key, Value: value})
}

// handleListSnapshots handles GET /snapshots.
func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list snapshots", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list snapshots")
		return
	}
	if entries == nil {
		entries = []snapshot.Entry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

// handleGetSnapshot handles GET /snapshots/{name}.
func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	tree, entry, err := s.store.Load(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, SnapshotResponse{Entry: entry, Tree: tree})
}

// handleSaveSnapshot handles PUT /snapshots/{name}: the live tree is saved.
func (s *Server) handleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	tree := s.root.AsObject().Wrap()
	s.mu.Unlock()

	entry, err := s.store.Save(r.Context(), chi.URLParam(r, "name"), tree)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.events.Publish("snapshot.saved", entry)
	respondJSON(w, http.StatusOK, entry)
}

// handleDeleteSnapshot handles DELETE /snapshots/{name}.
func (s *Server) handleDeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.store.Delete(r.Context(), name); err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.events.Publish("snapshot.deleted", map[string]string{"name": name})
	w.WriteHeader(http.StatusNoContent)
}

// handleRestoreSnapshot handles POST /snapshots/{name}/restore. The stored
// tree is merged onto the live root: existing ids are updated in place.
func (s *Server) handleRestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	tree, entry, err := s.store.Load(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.mu.Lock()
	err = s.root.AsObject().Unwrap(tree)
	merged := s.root.AsObject().Wrap()
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("restore failed", "snapshot", entry.Name, "error", err)
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.events.Publish("snapshot.restored", entry)
	respondJSON(w, http.StatusOK, SnapshotResponse{Entry: entry, Tree: merged})
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, snapshot.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, snapshot.ErrDigestMismatch):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, snapshot.ErrTooLarge):
		s.writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	default:
		s.logger.Error("snapshot store failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "snapshot store failed")
	}
}

// decodeDispatchRequest reads an optional DispatchRequest body. Numbers
// decode to int when whole so handlers see the same types Go callers pass.
func decodeDispatchRequest(r *http.Request) (DispatchRequest, error) {
	var req DispatchRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return DispatchRequest{}, errors.New("invalid JSON body")
	}
	for i, a := range req.Args {
		req.Args[i] = codec.NormalizeValue(a)
	}
	for k, v := range req.Kwargs {
		req.Kwargs[k] = codec.NormalizeValue(v)
	}
	req.Initial = codec.NormalizeValue(req.Initial)
	return req, nil
}

func countNodes(n cluster.Node) int {
	total := 1
	obj := n.AsObject()
	for _, id := range obj.Children() {
		child, _ := obj.Child(id)
		total += countNodes(child)
	}
	return total
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}
