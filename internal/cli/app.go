package cli

import (
	"context"
	"fmt"

	"github.com/example/musclecards/internal/catalog"
	"github.com/example/musclecards/internal/config"
	"github.com/example/musclecards/internal/database"
	"github.com/example/musclecards/internal/persistence"
	"github.com/example/musclecards/internal/session"
	"github.com/example/musclecards/pkg/models"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// app is everything a command needs, opened once per invocation
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *sqlx.DB
	catalog *models.Catalog
	gateway *persistence.Gateway
	reviews *database.ReviewLogRepository
	session *session.Session
}

func openApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := config.Init(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.catalogPath != "" {
		cfg.Catalog.Path = opts.catalogPath
	}

	logger := setupLogger(cfg.Env)

	cat, err := loadCatalog(cfg.Catalog, logger)
	if err != nil {
		return nil, err
	}

	db, err := database.Connect(database.Config{Type: cfg.DB.Type, DSN: cfg.DB.DSN})
	if err != nil {
		return nil, err
	}

	gateway := persistence.NewGateway(database.NewKVRepository(db), logger)
	reviews := database.NewReviewLogRepository(db)

	states, err := gateway.LoadStates(ctx, cat)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load progress: %w", err)
	}
	profile, err := gateway.LoadProfile(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load profile: %w", err)
	}

	sess := session.New(cat, states,
		session.WithSaver(gateway),
		session.WithReviewLogger(reviews),
		session.WithLogger(logger),
	)
	sess.SetDeadline(profile.ExamDate)
	if err := sess.SetActive(profile.ActiveCard); err != nil {
		logger.Warn("stored active card is not in the catalog", zap.String("card", profile.ActiveCard))
	}

	logger.Debug("progress loaded",
		zap.Int("cards", cat.Len()),
		zap.Int("states", len(states)),
		zap.String("db", cfg.DB.Type))

	return &app{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		catalog: cat,
		gateway: gateway,
		reviews: reviews,
		session: sess,
	}, nil
}

func loadCatalog(cfg config.CatalogConfig, logger *zap.Logger) (*models.Catalog, error) {
	if cfg.Path == "" {
		return catalog.Default()
	}

	importCfg := catalog.DefaultImportConfig()
	if cfg.Sheet != "" {
		importCfg.SheetName = cfg.Sheet
	}
	result, err := catalog.LoadFile(cfg.Path, importCfg)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	for _, msg := range result.Errors {
		logger.Warn("catalog row skipped", zap.String("reason", msg))
	}
	logger.Info("catalog loaded",
		zap.String("path", cfg.Path),
		zap.Int("cards", result.Catalog.Len()),
		zap.Int("skipped", result.Skipped))
	return result.Catalog, nil
}

func (a *app) updateProfile(ctx context.Context, change func(*persistence.Profile)) error {
	p, err := a.gateway.LoadProfile(ctx)
	if err != nil {
		return err
	}
	change(&p)
	return a.gateway.SaveProfile(ctx, p)
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", zap.Error(err))
	}
	_ = a.logger.Sync()
}
