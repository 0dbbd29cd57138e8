package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"linguasync/internal/cache"
	"linguasync/internal/constants"
	"linguasync/internal/errors"
	"linguasync/internal/middleware"
	"linguasync/internal/models"
	"linguasync/internal/service"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Services bundles the collaborators the HTTP layer exposes.
type Services struct {
	Mailbox      service.OfflineMailboxService
	SyncEngine   service.SyncEngine
	DeviceStates service.DeviceStateTracker
	ReadStatus   service.ReadStatusService
	Workers      *service.WorkerPool
	Cache        cache.Store
}

type Server struct {
	router *mux.Router
	logger *logrus.Logger
	svc    Services
	server *http.Server
	cfg    *models.Config
}

func NewServer(cfg *models.Config, logger *logrus.Logger, svc Services) *Server {
	s := &Server{
		router: mux.NewRouter(),
		logger: logger,
		svc:    svc,
		cfg:    cfg,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Observability(s.logger))

	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/sync/{userID}/{deviceID}/history", s.handleSyncHistory()).Methods(http.MethodGet)
	v1.HandleFunc("/sync/{userID}/{deviceID}", s.handleDeviceSync()).Methods(http.MethodPost)
	v1.HandleFunc("/sync/{userID}", s.handleBulkSync()).Methods(http.MethodPost)

	v1.HandleFunc("/messages/{messageID}/read", s.handleMarkAsRead()).Methods(http.MethodPost)
	v1.HandleFunc("/rooms/{roomID}/unread", s.handleRoomUnread()).Methods(http.MethodGet)
	v1.HandleFunc("/users/{userID}/unread", s.handleGlobalUnread()).Methods(http.MethodGet)
	v1.HandleFunc("/users/{userID}/devices", s.handleDeviceStates()).Methods(http.MethodGet)

	v1.HandleFunc("/users/{userID}/mailbox", s.handleMailboxDrain()).Methods(http.MethodGet)
	v1.HandleFunc("/users/{userID}/mailbox", s.handleMailboxClear()).Methods(http.MethodDelete)
}

func (s *Server) Start() error {
	port := s.cfg.Server.Port
	if port == 0 {
		port = constants.DefaultServerPort
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Server.IdleTimeoutSec) * time.Second,
	}

	s.logger.Infof("Starting server on port %d", port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth() http.HandlerFunc {
	type pinger interface {
		Ping(ctx context.Context) error
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if p, ok := s.svc.Cache.(pinger); ok {
			if err := p.Ping(r.Context()); err != nil {
				s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "degraded",
					"cache":  err.Error(),
				})
				return
			}
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

type deviceSyncRequest struct {
	LastSyncTimestamp int64 `json:"lastSyncTimestamp"`
}

func (s *Server) handleDeviceSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		userID, deviceID := vars["userID"], vars["deviceID"]

		var req deviceSyncRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result := s.svc.SyncEngine.SyncOfflineMessages(r.Context(), userID, deviceID, req.LastSyncTimestamp)
		s.writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) handleBulkSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := mux.Vars(r)["userID"]

		// Bulk sync runs on the worker pool so a slow user cannot tie up
		// the HTTP handler's goroutine budget beyond the pool size.
		var results []*models.SyncResult
		errCh := s.svc.Workers.Submit(r.Context(), "bulk_sync", func(ctx context.Context) error {
			var err error
			results, err = s.svc.SyncEngine.PerformBulkSync(ctx, userID)
			return err
		})
		if err := <-errCh; err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Error("Bulk sync failed")
			s.writeError(w, http.StatusInternalServerError, "bulk sync failed")
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
	}
}

func (s *Server) handleSyncHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		userID, deviceID := vars["userID"], vars["deviceID"]

		sessions, err := s.svc.SyncEngine.GetSyncHistory(r.Context(), userID)
		if err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Error("Failed to load sync history")
			s.writeError(w, http.StatusInternalServerError, "failed to load sync history")
			return
		}

		filtered := make([]*models.SyncSession, 0, len(sessions))
		for _, session := range sessions {
			if session.DeviceID == deviceID {
				filtered = append(filtered, session)
			}
		}
		s.writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": filtered})
	}
}

type markAsReadRequest struct {
	ReaderID string `json:"readerId"`
}

func (s *Server) handleMarkAsRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		messageID := mux.Vars(r)["messageID"]

		var req markAsReadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ReaderID == "" {
			s.writeError(w, http.StatusBadRequest, "readerId is required")
			return
		}

		if err := s.svc.ReadStatus.MarkAsRead(r.Context(), messageID, req.ReaderID); err != nil {
			if errors.GetCode(err) == errors.ErrCodeNotFound {
				s.writeError(w, http.StatusNotFound, "message not found")
				return
			}
			s.logger.WithError(err).WithField("message_id", messageID).Error("Failed to mark message as read")
			s.writeError(w, http.StatusInternalServerError, "failed to mark message as read")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleRoomUnread() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := mux.Vars(r)["roomID"]
		userID := r.URL.Query().Get("user")
		if userID == "" {
			s.writeError(w, http.StatusBadRequest, "user query parameter is required")
			return
		}

		count, err := s.svc.ReadStatus.GetUnreadCount(r.Context(), roomID, userID)
		if err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"room_id": roomID,
				"user_id": userID,
			}).Error("Failed to compute unread count")
			s.writeError(w, http.StatusInternalServerError, "failed to compute unread count")
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"roomId": roomID,
			"userId": userID,
			"unread": count,
		})
	}
}

func (s *Server) handleGlobalUnread() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := mux.Vars(r)["userID"]

		summary, err := s.svc.ReadStatus.GetGlobalUnreadSummary(r.Context(), userID)
		if err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Error("Failed to compute unread summary")
			s.writeError(w, http.StatusInternalServerError, "failed to compute unread summary")
			return
		}
		s.writeJSON(w, http.StatusOK, summary)
	}
}

func (s *Server) handleDeviceStates() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := mux.Vars(r)["userID"]

		states, err := s.svc.DeviceStates.ListDeviceStates(r.Context(), userID)
		if err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Error("Failed to list device states")
			s.writeError(w, http.StatusInternalServerError, "failed to list device states")
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]interface{}{"devices": states})
	}
}

func (s *Server) handleMailboxDrain() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := mux.Vars(r)["userID"]

		messages, err := s.svc.Mailbox.Drain(r.Context(), userID)
		if err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Error("Failed to drain mailbox")
			s.writeError(w, http.StatusInternalServerError, "failed to drain mailbox")
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"messages": messages,
			"count":    len(messages),
		})
	}
}

func (s *Server) handleMailboxClear() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := mux.Vars(r)["userID"]

		if err := s.svc.Mailbox.Clear(r.Context(), userID); err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Error("Failed to clear mailbox")
			s.writeError(w, http.StatusInternalServerError, "failed to clear mailbox")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
