package main

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/xavierca1/leadcapture/internal/config"
	"github.com/xavierca1/leadcapture/internal/extraction"
	"github.com/xavierca1/leadcapture/internal/infra/database"
	"github.com/xavierca1/leadcapture/internal/infra/http/middleware"
	"github.com/xavierca1/leadcapture/internal/infra/integration/anthropic"
	"github.com/xavierca1/leadcapture/internal/infra/integration/mistral"
	"github.com/xavierca1/leadcapture/internal/infra/integration/ringover"
	"github.com/xavierca1/leadcapture/internal/infra/integration/whatsapp"
	"github.com/xavierca1/leadcapture/internal/infra/mail"
	"github.com/xavierca1/leadcapture/internal/infra/mailbox"
	"github.com/xavierca1/leadcapture/internal/infra/queue"
	"github.com/xavierca1/leadcapture/internal/infra/worker"
	"github.com/xavierca1/leadcapture/internal/usecase"
)

// app holds every wired component. Optional adapters stay nil when their
// credentials are absent.
type app struct {
	cfg      *config.Config
	adapters config.EnabledAdapters

	pool     *pgxpool.Pool
	rabbit   *queue.RabbitMQ
	pipeline *usecase.Pipeline
	audit    *database.AutomationLogRepository

	processEmail    *usecase.ProcessEmailUseCase
	processCall     *usecase.ProcessCallUseCase
	processWhatsApp *usecase.ProcessWhatsAppMessageUseCase
	submitWebForm   *usecase.SubmitWebFormUseCase

	emailPoller     *worker.EmailPoller
	telephonyPoller *worker.TelephonyPoller

	// eventHandler receives events from the broker when one is configured.
	eventHandler usecase.LeadNotifier
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, adapters: cfg.EnabledAdapters()}
	log := zap.L()

	for _, missing := range a.adapters.Missing() {
		log.Info("adapter disabled, credentials missing", zap.String("adapter", missing))
	}

	pool, err := database.NewDBConnection(ctx, cfg.Store.DatabaseURL, database.PoolConfig{
		MaxConns:     cfg.Store.MaxConns,
		QueryTimeout: cfg.Store.QueryTimeout,
	})
	if err != nil {
		return nil, err
	}
	a.pool = pool

	leads := database.NewLeadRepository(pool)
	sources := database.NewLeadSourceRepository(pool)
	activities := database.NewLeadActivityRepository(pool)
	messages := database.NewWhatsAppMessageRepository(pool)
	a.audit = database.NewAutomationLogRepository(pool)

	recorder := middleware.Recorder{}
	extractor := extraction.NewService(a.providers(),
		extraction.WithTimeout(cfg.Extraction.Timeout),
		extraction.WithBreaker(cfg.Extraction.BreakerFailures, cfg.Extraction.BreakerReset),
		extraction.WithObserver(recorder.ObserveExtraction),
	)

	notifier, err := a.notifiers()
	if err != nil {
		a.Close()
		return nil, err
	}

	upsert := usecase.NewUpsertLeadUseCase(leads, sources)
	a.pipeline = usecase.NewPipeline(a.audit, extractor, upsert, notifier)
	a.pipeline.Recorder = recorder
	a.pipeline.Threshold = cfg.Extraction.ConfidenceThreshold
	a.pipeline.DedupWindow = cfg.Dedup.Window

	a.processEmail = usecase.NewProcessEmailUseCase(a.pipeline, activities)
	a.processCall = usecase.NewProcessCallUseCase(a.pipeline, a.audit, activities, cfg.Ringover.InternalPrefixes)
	a.processWhatsApp = usecase.NewProcessWhatsAppMessageUseCase(a.pipeline, messages, activities)
	a.submitWebForm = usecase.NewSubmitWebFormUseCase(a.pipeline, activities)

	if a.adapters.Email {
		box := mailbox.NewClient(mailbox.Config{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			Mailbox:  cfg.Email.Mailbox,
		})
		opener := worker.MailboxOpenerFunc(func(ctx context.Context) (worker.MailboxSession, error) {
			s, err := box.Open(ctx)
			if err != nil {
				return nil, err
			}
			return s, nil
		})
		a.emailPoller = worker.NewEmailPoller(opener, a.processEmail, cfg.Email.Lookback)
		a.emailPoller.Observer = recorder
	}

	if a.adapters.Telephony {
		calls := ringover.NewClient(cfg.Ringover.APIKey, ringover.WithBaseURL(cfg.Ringover.BaseURL))
		a.telephonyPoller = worker.NewTelephonyPoller(calls, a.processCall, cfg.Ringover.Lookback)
		a.telephonyPoller.Observer = recorder
	}

	log.Info("pipeline ready",
		zap.Strings("channels", a.adapters.Channels()),
		zap.Strings("extraction_providers", extractor.Providers()),
		zap.Int("confidence_threshold", a.pipeline.Threshold),
		zap.Duration("dedup_window", a.pipeline.DedupWindow),
	)

	return a, nil
}

func (a *app) providers() []extraction.Provider {
	var providers []extraction.Provider
	if a.adapters.PrimaryExtraction {
		providers = append(providers, anthropic.NewClient(a.cfg.Anthropic.Key, anthropic.WithModel(a.cfg.Anthropic.Model)))
	}
	if a.adapters.SecondaryExtraction {
		providers = append(providers, mistral.NewClient(a.cfg.Mistral.Key,
			mistral.WithModel(a.cfg.Mistral.Model),
			mistral.WithBaseURL(a.cfg.Mistral.BaseURL),
			mistral.WithHTTPClient(&http.Client{Timeout: a.cfg.Extraction.Timeout + 5*time.Second}),
		))
	}
	return providers
}

// notifiers returns what the pipeline notifies. With a broker the pipeline
// only publishes and the queue worker runs the direct notifiers.
func (a *app) notifiers() (usecase.LeadNotifier, error) {
	var direct usecase.MultiNotifier
	if a.adapters.ConfirmationEmail {
		direct = append(direct, mail.NewEmailSender(a.cfg.SMTP.Host, a.cfg.SMTP.Port, a.cfg.SMTP.Username, a.cfg.SMTP.Password, a.cfg.SMTP.From))
	}
	if a.adapters.MessagingAck {
		client := whatsapp.NewClient(a.cfg.WhatsApp.AccessToken, a.cfg.WhatsApp.PhoneID)
		direct = append(direct, whatsapp.NewAckNotifier(client, a.cfg.WhatsApp.AckMessage))
	}

	if !a.adapters.Broker {
		if len(direct) == 0 {
			return nil, nil
		}
		return direct, nil
	}

	rabbit, err := queue.NewRabbitMQ(a.cfg.RabbitMQ.URL)
	if err != nil {
		return nil, eris.Wrap(err, "broker")
	}
	a.rabbit = rabbit
	if len(direct) > 0 {
		a.eventHandler = direct
	}
	return queue.NewProducer(rabbit.Ch), nil
}

func (a *app) pollers() []worker.Poller {
	var pollers []worker.Poller
	if a.emailPoller != nil {
		pollers = append(pollers, a.emailPoller)
	}
	if a.telephonyPoller != nil {
		pollers = append(pollers, a.telephonyPoller)
	}
	return pollers
}

func (a *app) scheduler() *worker.Scheduler {
	s := worker.NewScheduler()
	if a.emailPoller != nil {
		s.Add(worker.PollTask(a.emailPoller, a.cfg.Email.Interval, a.cfg.Email.StartupDelay, a.cfg.Email.StartupDelay))
	}
	if a.telephonyPoller != nil {
		s.Add(worker.PollTask(a.telephonyPoller, a.cfg.Ringover.Interval, a.cfg.Ringover.StartupDelay, a.cfg.Ringover.StartupDelay))
		s.Add(worker.NewClaimReaper(a.audit).Task(time.Hour))
	}
	return s
}

func (a *app) Close() {
	if a.rabbit != nil {
		if err := a.rabbit.Close(); err != nil {
			zap.L().Warn("rabbitmq close failed", zap.Error(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
