package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ankushdebnath-github/chatbot/internal/chat"
	"github.com/ankushdebnath-github/chatbot/internal/classifier"
	"github.com/ankushdebnath-github/chatbot/internal/config"
	"github.com/ankushdebnath-github/chatbot/internal/httpapi"
	"github.com/ankushdebnath-github/chatbot/internal/model"
	"github.com/ankushdebnath-github/chatbot/internal/observability"
	"github.com/ankushdebnath-github/chatbot/internal/session"
	"github.com/ankushdebnath-github/chatbot/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	keywords := classifier.LoadKeywords(cfg.KeywordsPath)
	log.Printf("keyword corpus: %d terms", len(keywords))
	cls := classifier.New(classifier.Config{
		ApplySpellCorrection: cfg.ApplySpellCorrection,
		CorrectionThreshold:  cfg.CorrectionThreshold,
		ColdThreshold:        cfg.ColdThreshold,
		WarmThreshold:        cfg.WarmThreshold,
	}, keywords)

	ctx := context.Background()
	conversationStore, err := store.NewStore(ctx, cfg.DatabaseURL, cfg.ConversationsFile)
	if err != nil {
		log.Fatalf("conversation store init failed: %v", err)
	}
	defer conversationStore.Close()

	client, err := model.NewClient(ctx, model.Config{
		Mode:         cfg.ModelProvider,
		GeminiAPIKey: cfg.GeminiAPIKey,
		GeminiModel:  cfg.GeminiModel,
		OpenAIAPIKey: cfg.OpenAIAPIKey,
		OpenAIModel:  cfg.OpenAIModel,
	})
	if err != nil {
		log.Fatalf("model client init failed: %v", err)
	}

	sessions := session.NewManager(cfg.Cooldown)
	engine := chat.NewEngine(cls, conversationStore, sessions, client, metrics,
		cfg.ModelCallTimeout, cfg.ModelHistoryMax)

	api := httpapi.New(cfg, engine, conversationStore, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
