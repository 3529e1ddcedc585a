package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/pipeline"
	"github.com/sells-group/outreach-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the poll loop behind an HTTP API for campaigns and replies",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		cfg.Server.Port = port

		env, err := initEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer closeEnv(env)

		if err := env.Orchestrator.Run(ctx); err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(env.Orchestrator),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout())
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout())
		defer cancel()
		if err := env.Orchestrator.Stop(stopCtx); err != nil {
			var ae *pipeline.AbandonedError
			if errors.As(err, &ae) {
				zap.L().Warn("abandoned in-flight replies", zap.Strings("reply_ids", ae.ReplyIDs))
				return nil
			}
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// campaignAPI exposes orchestrator operations over HTTP.
type campaignAPI struct {
	o *pipeline.Orchestrator
}

func newRouter(o *pipeline.Orchestrator) http.Handler {
	api := &campaignAPI{o: o}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/campaigns", func(r chi.Router) {
		r.Post("/", api.start)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", api.status)
			r.Get("/metrics", api.metrics)
			r.Post("/replies", api.reply)
			r.Post("/leads/{leadID}/pause", api.sequence((*pipeline.Orchestrator).PauseSequence))
			r.Post("/leads/{leadID}/resume", api.sequence((*pipeline.Orchestrator).ResumeSequence))
		})
	})
	return r
}

type startRequest struct {
	ClientID string              `json:"client_id"`
	Profile  model.TargetProfile `json:"profile"`
}

func (a *campaignAPI) start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := a.o.StartCampaign(r.Context(), req.ClientID, req.Profile)
	if err != nil {
		if id == "" {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"campaign_id": id,
			"error":       err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"campaign_id": id})
}

func (a *campaignAPI) status(w http.ResponseWriter, r *http.Request) {
	st, err := a.o.GetStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *campaignAPI) metrics(w http.ResponseWriter, r *http.Request) {
	rep, err := a.o.Metrics(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

type replyRequest struct {
	LeadID  string        `json:"lead_id"`
	Channel model.Channel `json:"channel"`
	Text    string        `json:"text"`
}

func (a *campaignAPI) reply(w http.ResponseWriter, r *http.Request) {
	var req replyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := a.o.EnqueueReply(r.Context(), model.InboundReply{
		CampaignID: chi.URLParam(r, "id"),
		LeadID:     req.LeadID,
		Channel:    req.Channel,
		Text:       req.Text,
		ReceivedAt: time.Now().UTC(),
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"reply_id": id, "status": "queued"})
}

func (a *campaignAPI) sequence(op sequenceOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seq, err := op(a.o, r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "leadID"))
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, seq)
	}
}

// writeFailure maps orchestrator errors to HTTP status codes.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case model.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case store.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not found")
	default:
		zap.L().Error("api request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
