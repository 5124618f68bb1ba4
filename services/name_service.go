package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/flashbots/namereg/crypto"
	"github.com/flashbots/namereg/metrics"
	"github.com/flashbots/namereg/protocol"
	"github.com/flashbots/namereg/registry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const defaultMaxBodyBytes = 64 << 10

// NameService exposes a Registry over HTTP.
//
// Public routes:
//   - GET  /id/{username}  base64 public key, 404 if unknown
//   - GET  /name/{name}    current UpdateMessage as JSON, 404 if unset
//   - POST /name/{name}    submit an UpdateMessage; "ok", 400 or 403
//
// Admin routes, mounted only when an admin token is configured and
// protected by basic auth:
//   - POST /admin/id/{username}  register a key, or generate one
//   - GET  /admin/users          list usernames
//   - GET  /admin/names          list names
//   - GET  /admin/stats          table sizes
//
// Without a token the key table can only be populated at startup.
type NameService struct {
	registry *registry.Registry
	config   *NameServiceConfig
	log      *slog.Logger
}

// NewNameService creates the HTTP adapter for reg.
func NewNameService(reg *registry.Registry, config *NameServiceConfig) *NameService {
	if config == nil {
		config = &NameServiceConfig{}
	}
	log := config.Log
	if log == nil {
		log = slog.Default()
	}
	return &NameService{
		registry: reg,
		config:   config,
		log:      log,
	}
}

// RegisterRoutes registers the public routes, and the admin routes when an
// admin token is configured.
func (s *NameService) RegisterRoutes(r chi.Router) {
	s.RegisterPublicRoutes(r)
	if s.config.AdminToken == "" {
		s.log.Warn("No admin token configured, admin routes disabled; users come from config only")
		return
	}
	r.Route("/admin", s.RegisterAdminRoutes)
}

// RegisterPublicRoutes registers the read and submit endpoints.
func (s *NameService) RegisterPublicRoutes(r chi.Router) {
	r.Get("/", s.handleRoot)
	r.Get("/id/{username}", s.handleGetKey)
	r.Get("/name/{name}", s.handleGetName)
	r.Post("/name/{name}", s.handlePostName)
}

// RegisterAdminRoutes registers the registration and listing endpoints.
// The router is expected to be mounted under /admin. With no admin token
// every admin request is refused.
func (s *NameService) RegisterAdminRoutes(r chi.Router) {
	if s.config.AdminToken == "" {
		r.Use(func(http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "admin routes disabled", http.StatusForbidden)
			})
		})
	} else {
		user, pass := ParseAdminToken(s.config.AdminToken)
		r.Use(middleware.BasicAuth("namereg-admin", map[string]string{user: pass}))
	}

	r.Post("/id/{username}", s.handleRegisterUser)
	r.Get("/users", s.handleListUsers)
	r.Get("/names", s.handleListNames)
	r.Get("/stats", s.handleStats)
}

func (s *NameService) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("hello world"))
}

func (s *NameService) handleGetKey(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	key, ok := s.registry.LookupKey(username)
	metrics.Lookup("id", ok)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(key.Base64()))
}

func (s *NameService) handleGetName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	msg, ok := s.registry.LookupName(name)
	metrics.Lookup("name", ok)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	writeJSON(w, msg)
}

func (s *NameService) handlePostName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes())
	msg, err := protocol.DecodeUpdateMessage(r.Body)
	if err != nil {
		metrics.UpdateRejected("malformed_body")
		http.Error(w, fmt.Sprintf("malformed update: %v", err), http.StatusBadRequest)
		return
	}

	if err := s.registry.ApplyUpdate(name, msg); err != nil {
		kind := protocol.KindOf(err)
		if kind == 0 {
			s.log.Error("applying update", "name", name, "user", msg.User, "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		metrics.UpdateRejected(kind.String())
		s.log.Warn("rejected update", "name", name, "user", msg.User, "kind", kind.String())
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	metrics.UpdateAccepted()
	s.log.Info("accepted update", "name", name, "user", msg.User, "contents", msg.NewContents)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

func (s *NameService) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	var req RegisterUserRequest
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, fmt.Sprintf("malformed registration: %v", err), http.StatusBadRequest)
			return
		}
	}

	resp := &RegisterUserResponse{Username: username}
	var pubKey crypto.PublicKey
	if req.PublicKey != "" {
		pubKey, err = crypto.NewPublicKeyFromBase64(req.PublicKey)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	} else {
		var privKey crypto.PrivateKey
		pubKey, privKey, err = crypto.GenerateKeyPair()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		resp.PrivateKey, err = crypto.MarshalPrivateKey(privKey)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	if err := s.registry.RegisterUser(username, pubKey); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, protocol.ErrInvalidUsername) || errors.Is(err, crypto.ErrInvalidKey) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	generated := resp.PrivateKey != ""
	metrics.UserRegistered(generated)
	s.log.Info("registered user", "user", username, "publicKey", pubKey.Base64(), "generated", generated)

	resp.PublicKey = pubKey.Base64()
	writeJSON(w, resp)
}

func (s *NameService) handleListUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, &UserListResponse{Users: s.registry.Users()})
}

func (s *NameService) handleListNames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, &NameListResponse{Names: s.registry.Names()})
}

func (s *NameService) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.registry.Stats()
	writeJSON(w, &stats)
}

func (s *NameService) maxBodyBytes() int64 {
	if s.config.MaxBodyBytes > 0 {
		return s.config.MaxBodyBytes
	}
	return defaultMaxBodyBytes
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
