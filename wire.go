package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/autostream-sales-agent/server/internal/agent/graph"
	"github.com/autostream-sales-agent/server/internal/agent/graph/conversations"
	"github.com/autostream-sales-agent/server/internal/agent/graph/nodes"
	"github.com/autostream-sales-agent/server/internal/agent/graph/tools"
	"github.com/autostream-sales-agent/server/internal/agent/knowledge"
	"github.com/autostream-sales-agent/server/internal/agent/model"
	"github.com/autostream-sales-agent/server/internal/agent/repo"
	"github.com/autostream-sales-agent/server/internal/api"
	"github.com/autostream-sales-agent/server/internal/metrics"
	logx "github.com/autostream-sales-agent/server/pkg/logger"
)

const (
	storeMemory = "memory"
	storeRedis  = "redis"

	embeddingGemini = "gemini"

	indexWarmupTimeout = 30 * time.Second
)

// application is the wired agent plus everything that must be closed on exit.
type application struct {
	agent    *graph.Agent
	handler  *api.Handler
	registry *prometheus.Registry
	closers  []func() error
}

func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logx.Warn().Err(err).Msg("Error during shutdown")
		}
	}
}

func wireApp(ctx context.Context, cfg AppConfig) (_ *application, err error) {
	app := &application{registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(app.registry)

	store, locker, err := wireSessions(ctx, cfg, app)
	if err != nil {
		return nil, err
	}

	kb, err := knowledge.Default()
	if err != nil {
		return nil, err
	}

	var (
		classifierModel model.ChatModel
		responseModel   model.ChatModel
		classifierName  string
		responseName    string
		embedder        embedding.Embedder = knowledge.NewHashEmbedder(cfg.Embedding.Dimensions)
	)
	if cfg.APIKey != "" {
		models, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
			APIKey:           cfg.APIKey,
			BaseURL:          cfg.BaseURL,
			ClassifierConfig: &cfg.Classifier,
			RespConfig:       &cfg.Response,
		})
		if err != nil {
			return nil, err
		}
		classifierModel, classifierName = models.Classifier, models.ClassifierModelName
		responseModel, responseName = models.Response, models.ResponseModelName

		if strings.EqualFold(cfg.Embedding.Provider, embeddingGemini) {
			ge, err := knowledge.NewGeminiEmbedder(models.Client, cfg.Embedding.Model, cfg.Embedding.Dimensions)
			if err != nil {
				return nil, err
			}
			embedder = ge
		}
	} else {
		logx.Warn().Msg("GEMINI_API_KEY not set, running on keyword rules and the knowledge base only")
	}

	index, err := knowledge.NewIndex(kb.Documents(), knowledge.IndexConfig{
		Embedder: embedder,
		TopK:     cfg.Agent.RetrievalTopK,
	})
	if err != nil {
		return nil, err
	}
	warmCtx, cancel := context.WithTimeout(ctx, indexWarmupTimeout)
	if err := index.Build(warmCtx); err != nil {
		// Retrieval retries the build lazily and falls back to the knowledge base meanwhile.
		logx.Warn().Err(err).Msg("Knowledge index warm-up failed")
	}
	cancel()

	leads, err := repo.NewSQLiteLeadRegistry(cfg.Leads.DBPath)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, leads.Close)

	registerLead, err := tools.NewRegisterLeadTool(repo.NewRetryingLeadRegistry(leads, cfg.Leads.MaxRetries))
	if err != nil {
		return nil, err
	}

	rules := nodes.DefaultRules(cfg.Agent.GreetingMaxWords)
	agent, err := graph.New(graph.Config{
		Store:  store,
		Locker: locker,
		Classifier: nodes.NewClassifier(nodes.ClassifierConfig{
			Rules:     rules,
			Model:     classifierModel,
			ModelName: classifierName,
			Company:   kb.Company,
			Timeout:   cfg.Agent.LLMTimeout,
			Fallbacks: m,
		}),
		Greeting: nodes.NewGreeting(kb.Company, cfg.Tagline),
		Inquiry: nodes.NewInquiry(nodes.InquiryConfig{
			KnowledgeBase:    kb,
			Rules:            rules,
			Retriever:        index,
			Model:            responseModel,
			ModelName:        responseName,
			Messages:         conversations.NewMessagesManager(cfg.Agent.HistoryTurns),
			TopK:             cfg.Agent.RetrievalTopK,
			RetrievalTimeout: cfg.Agent.RetrievalTimeout,
			LLMTimeout:       cfg.Agent.LLMTimeout,
			MinAnswerLength:  cfg.Agent.MinAnswerLength,
			Fallbacks:        m,
		}),
		LeadCapture: nodes.NewLeadCapture(cfg.LeadPlan),
		ToolExecution: nodes.NewToolExecution(nodes.ToolExecutionConfig{
			Tool:     registerLead,
			Timeout:  cfg.Agent.ToolTimeout,
			Company:  kb.Company,
			PlanName: cfg.LeadPlan,
		}),
		MaxHops:     cfg.Agent.MaxHops,
		LockTimeout: cfg.Session.LockTimeout,
		Metrics:     m,
	})
	if err != nil {
		return nil, err
	}
	app.agent = agent

	app.handler, err = api.NewHandler(api.Config{
		Runner:      agent,
		Gatherer:    app.registry,
		CORSOrigins: cfg.Server.CORSOrigins,
		Version:     version,
	})
	if err != nil {
		return nil, err
	}

	logx.Info().
		Str("state_store", cfg.Session.Store).
		Bool("llm", cfg.APIKey != "").
		Int("index_chunks", index.Len()).
		Msg("Sales agent wired")
	return app, nil
}

// wireSessions picks the checkpoint store and the matching session locker.
func wireSessions(ctx context.Context, cfg AppConfig, app *application) (model.StateRepository, model.SessionLocker, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Session.Store)) {
	case storeRedis:
		if cfg.Redis.URL == "" {
			return nil, nil, errors.New("STATE_STORE=redis requires REDIS_URL")
		}
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		app.closers = append(app.closers, rdb.Close)
		logx.Info().Dur("lock_ttl", cfg.Session.LockLease(cfg.Agent)).Msg("Connected to Redis successfully")
		return repo.NewRedisStateRepository(rdb, cfg.Session.TTL), repo.NewRedisLocker(rdb, cfg.Session.LockLease(cfg.Agent)), nil

	case storeMemory, "":
		capacity := cfg.Session.MemoryCapacity
		if capacity <= 0 {
			capacity = model.DefaultSessionCapacity
		}
		mem, err := repo.NewMemoryStateRepository(capacity, cfg.Session.TTL)
		if err != nil {
			return nil, nil, err
		}
		app.closers = append(app.closers, func() error { mem.Close(); return nil })
		return mem, repo.NewLocalLocker(), nil

	default:
		return nil, nil, fmt.Errorf("unknown STATE_STORE %q (want %s or %s)", cfg.Session.Store, storeMemory, storeRedis)
	}
}
