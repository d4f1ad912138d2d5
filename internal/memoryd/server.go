package memoryd

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/krupesh-app/clawmemory-openclaw/internal/config"
	"github.com/krupesh-app/clawmemory-openclaw/pkg/types"
)

// Server serves the ClawMemory HTTP surface from the local store. Any
// bearer token with the cm_ prefix is accepted; this is a dev stand-in,
// not an auth system.
type Server struct {
	store  *Store
	logger *log.Logger
}

// NewServer builds a dev server over the given store.
func NewServer(store *Store, logger *log.Logger) *Server {
	return &Server{store: store, logger: logger}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /memories", s.auth(s.handleStore))
	mux.HandleFunc("POST /memories/recall", s.auth(s.handleRecall))
	mux.HandleFunc("GET /memories", s.auth(s.handleList))
	mux.HandleFunc("GET /memories/{id}", s.auth(s.handleGet))
	mux.HandleFunc("PATCH /memories/{id}", s.auth(s.handleUpdate))
	mux.HandleFunc("DELETE /memories/{id}", s.auth(s.handleDelete))
	return mux
}

func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || !strings.HasPrefix(token, config.APIKeyPrefix) {
			s.writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		started := time.Now()
		next(w, r)
		s.logger.Debug("handled request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(started))
	}
}

func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	var req types.StoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		s.writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	if req.Type == "" {
		req.Type = types.MemoryContext
	}
	if !req.Type.Valid() {
		s.writeError(w, http.StatusBadRequest, "invalid memory type "+strconv.Quote(string(req.Type)))
		return
	}
	importance := req.Importance
	if importance < 0 {
		importance = 0
	}
	if importance > 1 {
		importance = 1
	}

	mem := types.Memory{
		ID:         uuid.NewString(),
		Content:    req.Content,
		Type:       req.Type,
		Tags:       req.Tags,
		Importance: importance,
		CreatedAt:  time.Now().UTC(),
		AgentID:    req.AgentID,
	}
	if err := s.store.Insert(r.Context(), mem); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeData(w, types.StoreData{ID: mem.ID, Status: "created"})
}

func (s *Server) handleRecall(w http.ResponseWriter, r *http.Request) {
	var req types.RecallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	memories, err := s.store.Search(r.Context(), req.AgentID, req.Query, req.Limit, req.Threshold)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeData(w, types.RecallData{Memories: memories, Count: len(memories), Query: req.Query})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	agentID := r.URL.Query().Get("agentId")

	memories, err := s.store.List(r.Context(), agentID, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeData(w, types.ListData{Memories: memories, Count: len(memories)})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	mem, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeData(w, mem)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch types.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if patch.Type != nil && !patch.Type.Valid() {
		s.writeError(w, http.StatusBadRequest, "invalid memory type "+strconv.Quote(string(*patch.Type)))
		return
	}
	id := r.PathValue("id")
	if err := s.store.Update(r.Context(), id, patch); err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeData(w, types.StoreData{ID: id, Status: "updated"})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeData(w, types.StoreData{ID: id, Status: "deleted"})
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "memory not found")
		return
	}
	s.writeError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) writeData(w http.ResponseWriter, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(types.Envelope{Success: true, Data: payload})
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.Envelope{Success: false, Error: msg})
}
