package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/loqalabs/loqa-dictate/internal/audio"
	"github.com/loqalabs/loqa-dictate/internal/bus"
	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/delivery"
	"github.com/loqalabs/loqa-dictate/internal/embed"
	"github.com/loqalabs/loqa-dictate/internal/eventstore"
	"github.com/loqalabs/loqa-dictate/internal/expand"
	"github.com/loqalabs/loqa-dictate/internal/jargon"
	"github.com/loqalabs/loqa-dictate/internal/llm"
	"github.com/loqalabs/loqa-dictate/internal/model"
	"github.com/loqalabs/loqa-dictate/internal/natsserver"
	"github.com/loqalabs/loqa-dictate/internal/pipeline"
	"github.com/loqalabs/loqa-dictate/internal/protocol"
	"github.com/loqalabs/loqa-dictate/internal/selector"
	"github.com/loqalabs/loqa-dictate/internal/session"
	"github.com/loqalabs/loqa-dictate/internal/stt"
)

const (
	dictationStream    = "DICTATIONS"
	dictationStreamAge = 7 * 24 * time.Hour
)

// components holds everything setup built, in start order.
type components struct {
	embedded *natsserver.EmbeddedServer
	bus      *bus.Client
	store    *eventstore.Store
	models   *model.Manager
	catalog  *jargon.Catalog
	machine  *session.Machine
	orch     *pipeline.Orchestrator
}

func (r *Runtime) setup(ctx context.Context) (*components, error) {
	c := &components{}
	fail := func(err error) (*components, error) {
		r.teardown(c)
		return nil, err
	}

	if r.cfg.Bus.Enabled {
		srv, err := natsserver.Start(r.cfg.Bus, r.logger)
		if err != nil {
			return fail(fmt.Errorf("start embedded nats: %w", err))
		}
		c.embedded = srv
		busCfg := r.cfg.Bus
		if srv != nil {
			busCfg.Servers = []string{srv.ClientURL()}
		}
		client, err := bus.Connect(ctx, busCfg, r.cfg.RuntimeName, r.logger)
		if err != nil {
			return fail(fmt.Errorf("connect bus: %w", err))
		}
		c.bus = client
		if err := client.EnsureStream(dictationStream, dictationStreamAge, protocol.SubjectOutput); err != nil {
			r.logger.Warn("dictation stream unavailable", slog.String("error", err.Error()))
		}
	}

	store, err := eventstore.Open(ctx, r.cfg.EventStore, r.logger)
	if err != nil {
		return fail(fmt.Errorf("open event store: %w", err))
	}
	c.store = store

	loader, err := stt.NewLoader(r.cfg)
	if err != nil {
		return fail(err)
	}
	c.models = model.NewManager(r.cfg.Model, loader, r.logger)
	engine := stt.NewEngine(r.cfg.STT, c.models, r.logger)

	c.catalog = jargon.NewCatalog()
	if err := loadPacks(c.catalog, r.cfg.Jargon.PacksFile, r.logger); err != nil {
		return fail(err)
	}

	source, err := newSource(r.cfg.Audio)
	if err != nil {
		return fail(err)
	}

	var scorer selector.Scorer
	if r.cfg.Selector.Scorer == "embedding" {
		scorer = selector.NewEmbedding(embed.NewOpenAI(r.cfg.Embeddings, nil))
	}
	opts := selector.OptionsFrom(r.cfg.Selector)

	var post *llm.PostProcessor
	if r.cfg.PostProcess.Enabled {
		gen, err := llm.NewGenerator(r.cfg.PostProcess)
		if err != nil {
			return fail(err)
		}
		post = llm.NewPostProcessor(r.cfg.PostProcess, gen, r.logger)
	}

	var pub delivery.Publisher
	if c.bus != nil {
		pub = c.bus
	}
	deliverer, err := delivery.New(r.cfg.Delivery, pub, r.logger)
	if err != nil {
		return fail(err)
	}

	mode, err := session.ParseMode(r.cfg.Control.Mode)
	if err != nil {
		return fail(err)
	}
	c.machine = session.New(mode)

	deps := pipeline.Deps{
		Source:        source,
		Engine:        engine,
		Catalog:       c.catalog,
		Selector:      selector.New(opts, scorer, r.logger),
		Prompts:       selector.NewPromptRouter(opts, r.logger),
		PostProcessor: post,
		Expander:      expand.New(r.cfg.Expansion, r.logger),
		Deliverer:     deliverer,
		History:       c.store,
		Publisher:     pub,
		ModelStatus:   c.models.Status,
	}
	orch, err := pipeline.New(r.cfg, c.machine, deps, r.logger)
	if err != nil {
		return fail(err)
	}
	c.orch = orch
	return c, nil
}

func (r *Runtime) teardown(c *components) {
	if c.models != nil {
		if err := c.models.Close(); err != nil {
			r.logger.Warn("model manager close failed", slog.String("error", err.Error()))
		}
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			r.logger.Warn("event store close failed", slog.String("error", err.Error()))
		}
	}
	if c.bus != nil {
		c.bus.Close()
	}
	c.embedded.Shutdown()
}

func newSource(cfg config.AudioConfig) (audio.Source, error) {
	switch cfg.Source {
	case "wav":
		return audio.NewWAVSource(cfg), nil
	case "command":
		return audio.NewCommandSource(cfg)
	default:
		return nil, fmt.Errorf("unknown audio source %q", cfg.Source)
	}
}

// loadPacks imports the persisted user packs.
func loadPacks(catalog *jargon.Catalog, path string, log *slog.Logger) error {
	if path == "" {
		return nil
	}
	report, err := catalog.LoadFile(path)
	if err != nil {
		return err
	}
	for _, issue := range report.Issues {
		log.Warn("skipped pack entry", slog.Int("index", issue.Index), slog.String("id", issue.ID), slog.String("reason", issue.Reason))
	}
	log.Info("user packs loaded", slog.String("path", path), slog.Int("count", len(report.Imported)))
	return nil
}
