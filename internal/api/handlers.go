package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"sync"

	"clumsy/internal/diff"
	"clumsy/internal/errors"
	"clumsy/internal/index"
	"clumsy/internal/logging"
	"clumsy/internal/object"
	"clumsy/internal/repo"

	"go.uber.org/zap"
)

// maxFileSize bounds request bodies written into the worktree.
const maxFileSize = 32 << 20

// RepoHandler serves a single repository. Requests are serialized since the
// repository itself does no locking.
type RepoHandler struct {
	mu     sync.Mutex
	repo   *repo.Repository
	logger *logging.Logger
}

func NewRepoHandler(r *repo.Repository, logger *logging.Logger) *RepoHandler {
	return &RepoHandler{repo: r, logger: logger}
}

// Register adds the repository routes to mux.
func (h *RepoHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/head", h.Head)
	mux.HandleFunc("PUT /api/files/{path}", h.WriteFile)
	mux.HandleFunc("GET /api/files/{path}", h.ReadFile)
	mux.HandleFunc("GET /api/index", h.Index)
	mux.HandleFunc("POST /api/index", h.Stage)
	mux.HandleFunc("POST /api/commits", h.Commit)
	mux.HandleFunc("GET /api/log", h.Log)
	mux.HandleFunc("GET /api/commits/{hash}/tree", h.LsTree)
	mux.HandleFunc("GET /api/commits/{hash}/diff/{path}", h.Diff)
	mux.HandleFunc("POST /api/restore", h.Restore)
	mux.HandleFunc("GET /api/objects/{hash}", h.CatFile)
}

func (h *RepoHandler) Head(w http.ResponseWriter, r *http.Request) {
	var ref string
	var hash object.Hash
	err := h.locked(func() (err error) {
		ref, hash, err = h.repo.Head()
		return err
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, HeadResponse{Ref: ref, Hash: hash})
}

func (h *RepoHandler) WriteFile(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	data, err := io.ReadAll(io.LimitReader(r.Body, maxFileSize))
	if err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	err = h.locked(func() error {
		return h.repo.WriteFile(path, data)
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RepoHandler) ReadFile(w http.ResponseWriter, r *http.Request) {
	var data []byte
	err := h.locked(func() (err error) {
		data, err = h.repo.ReadFile(r.PathValue("path"))
		return err
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}

func (h *RepoHandler) Index(w http.ResponseWriter, r *http.Request) {
	var entries []index.Entry
	h.locked(func() error {
		entries = h.repo.Index()
		return nil
	})
	writeJSON(w, http.StatusOK, entries)
}

func (h *RepoHandler) Stage(w http.ResponseWriter, r *http.Request) {
	var req StageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Mode == 0 {
		req.Mode = object.ModeFile
	}

	var hash object.Hash
	err := h.locked(func() (err error) {
		hash, err = h.repo.StageFileMode(req.Path, req.Mode)
		return err
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, HashResponse{Hash: hash})
}

func (h *RepoHandler) Commit(w http.ResponseWriter, r *http.Request) {
	var req CommitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	var hash object.Hash
	err := h.locked(func() (err error) {
		if req.Author != nil {
			sig := object.Signature{Name: req.Author.Name, Email: req.Author.Email, When: req.Author.When}
			hash, err = h.repo.CommitAs(req.Message, sig, sig)
		} else {
			hash, err = h.repo.Commit(req.Message)
		}
		return err
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, HashResponse{Hash: hash})
}

func (h *RepoHandler) Log(w http.ResponseWriter, r *http.Request) {
	var entries []repo.LogEntry
	err := h.locked(func() (err error) {
		entries, err = h.repo.Log()
		return err
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLog(entries))
}

func (h *RepoHandler) LsTree(w http.ResponseWriter, r *http.Request) {
	hash, err := object.ParseHash(r.PathValue("hash"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var entries []object.TreeEntry
	err = h.locked(func() (err error) {
		entries, err = h.repo.LsTree(hash)
		return err
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTreeEntries(entries))
}

func (h *RepoHandler) Diff(w http.ResponseWriter, r *http.Request) {
	hash, err := object.ParseHash(r.PathValue("hash"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	contextLines := 3
	if v := r.URL.Query().Get("context"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid context", http.StatusBadRequest)
			return
		}
		contextLines = n
	}

	var result *diff.Result
	err = h.locked(func() (err error) {
		result, err = h.repo.Diff(hash, r.PathValue("path"), contextLines)
		return err
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DiffResponse{
		Patch:     result.Format(),
		Additions: result.Stats.Additions,
		Deletions: result.Stats.Deletions,
	})
}

func (h *RepoHandler) Restore(w http.ResponseWriter, r *http.Request) {
	var req RestoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	err := h.locked(func() error {
		return h.repo.Restore(req.Commit, req.Path)
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RepoHandler) CatFile(w http.ResponseWriter, r *http.Request) {
	hash, err := object.ParseHash(r.PathValue("hash"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var o object.Object
	err = h.locked(func() (err error) {
		o, err = h.repo.CatFile(hash)
		return err
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toObject(hash, o))
}

// locked runs fn while holding the repository lock.
func (h *RepoHandler) locked(fn func() error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn()
}

// writeError reports err with the status of its kind. Untyped errors are
// logged and hidden behind a generic message.
func (h *RepoHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.StatusCode(err)
	body := &errors.Error{
		Type:    errors.TypeOf(err),
		Message: err.Error(),
		Code:    status,
	}
	if body.Type == "" {
		h.logger.WithRequestID(r.Context()).Error("request failed", zap.Error(err))
		body.Message = http.StatusText(status)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
