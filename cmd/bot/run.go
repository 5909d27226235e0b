package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sashabaranov/go-openai"
	"github.com/xaenox/intent-bot/internal/bot"
	"github.com/xaenox/intent-bot/internal/classifier"
	"github.com/xaenox/intent-bot/internal/dashboard"
	"github.com/xaenox/intent-bot/internal/storage"
	"github.com/xaenox/intent-bot/pkg/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var errUpdatesClosed = errors.New("telegram update channel closed")

func runBot(ctx context.Context, cfgFile string) error {
	logMode := os.Getenv("LOG_MODE")
	logger, err := newLogger(logMode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	if logMode == "" || logMode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		logger.Error("Failed to load config", zap.Error(err), zap.String("path", cfgFile))
		return err
	}

	clf, err := buildClassifier(cfg, logger)
	if err != nil {
		logger.Error("Failed to load classifier", zap.Error(err), zap.String("model_path", cfg.Classifier.ModelPath))
		return err
	}

	store, err := storage.Open(ctx, storage.Config{
		URI:        cfg.Store.URI,
		Database:   cfg.Store.Database,
		Collection: cfg.Store.Collection,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize storage", zap.Error(err))
		return err
	}
	if store != nil {
		defer store.Close()
	} else {
		logger.Info("No store configured, conversations will not be recorded")
	}

	api, err := bot.Connect(cfg.Telegram.Token)
	if err != nil {
		logger.Error("Failed to connect to Telegram", zap.Error(err))
		return err
	}
	logger.Info("Authorized on account", zap.String("username", api.Self.UserName))

	b := bot.New(api, bot.Config{
		Mention:     cfg.Telegram.Username,
		PollTimeout: cfg.Telegram.PollTimeout,
	}, clf, store, logger)

	srv, err := dashboard.NewServer(cfg.HTTP.Addr(), store, logger)
	if err != nil {
		logger.Error("Failed to build dashboard", zap.Error(err))
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := b.Start(gctx); err != nil {
			return err
		}
		if gctx.Err() == nil {
			return errUpdatesClosed
		}
		return nil
	})
	g.Go(func() error {
		return srv.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Stopped with error", zap.Error(err))
		return err
	}
	logger.Info("Shut down cleanly")
	return nil
}

// buildClassifier loads the model artifact and, for the openai backend, puts
// the chat model in front of the artifact's own predictor.
func buildClassifier(cfg *config.Config, logger *zap.Logger) (*classifier.IntentClassifier, error) {
	artifact, err := classifier.LoadArtifact(cfg.Classifier.ModelPath)
	if err != nil {
		return nil, err
	}

	opts := []classifier.Option{classifier.WithFallback(cfg.Classifier.FallbackResponse)}
	base := classifier.FromArtifact(artifact, logger, opts...)
	if cfg.Classifier.Backend != config.BackendOpenAI {
		logger.Info("Loaded intent model",
			zap.String("path", cfg.Classifier.ModelPath),
			zap.Strings("tags", base.Tags()),
		)
		return base, nil
	}

	tagger := classifier.NewGPTTagger(
		openai.NewClient(cfg.OpenAI.APIKey),
		cfg.OpenAI.Model,
		cfg.OpenAI.MaxTokens,
		cfg.OpenAI.Temperature,
		base.Tags(),
		artifact.Pipeline(),
		logger,
	)
	logger.Info("Using OpenAI intent tagger",
		zap.String("model", cfg.OpenAI.Model),
		zap.Strings("tags", base.Tags()),
	)
	return classifier.NewIntentClassifier(tagger, artifact.Intents, logger, opts...), nil
}
