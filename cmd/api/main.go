// @title        SIFEN DTE API
// @version      1.0
// @description  Emisión, firma y transmisión de documentos tributarios electrónicos a SIFEN (Paraguay).
// @BasePath     /
// @securityDefinitions.apikey  Bearer
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	_ "github.com/jhoicas/sifen-dte/docs"
	"github.com/jhoicas/sifen-dte/internal/application/billing"
	"github.com/jhoicas/sifen-dte/internal/infrastructure/archive"
	"github.com/jhoicas/sifen-dte/internal/infrastructure/connectivity"
	"github.com/jhoicas/sifen-dte/internal/infrastructure/metrics"
	"github.com/jhoicas/sifen-dte/internal/infrastructure/postgres"
	"github.com/jhoicas/sifen-dte/internal/infrastructure/redislock"
	sifenxml "github.com/jhoicas/sifen-dte/internal/infrastructure/sifen"
	"github.com/jhoicas/sifen-dte/internal/infrastructure/sifen/signer"
	httpRouter "github.com/jhoicas/sifen-dte/internal/interfaces/http"
	"github.com/jhoicas/sifen-dte/pkg/config"
	"github.com/jhoicas/sifen-dte/pkg/logger"
	"github.com/jhoicas/sifen-dte/pkg/sifen"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("sifen_env", cfg.SIFEN.Environment).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migraciones")
	}

	docRepo := postgres.NewDocumentRepository(pool)
	eventRepo := postgres.NewEventRepository(pool)
	emitterRepo := postgres.NewEmitterRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	env := sifen.Environment(cfg.SIFEN.Environment)
	certs := signer.NewCertificateStore(cfg.SIFEN.CertPath, cfg.SIFEN.CertKeyPath, cfg.SIFEN.CertPassword, nil)
	signerSvc := signer.NewDigitalSignatureService(cfg.SIFEN.CSC, nil)
	cdcGen := sifen.NewCDCGenerator(nil)
	xmlBuilder := sifenxml.NewXMLBuilderService(cdcGen)
	soapClient := sifenxml.NewSOAPClient(sifenxml.ClientConfig{
		Environment:       env,
		Timeout:           cfg.SIFEN.Timeout,
		RequestsPerSecond: cfg.SIFEN.RequestsPerSecond,
		Burst:             cfg.SIFEN.Burst,
	})

	m := metrics.New()

	// Archivo de auditoría opcional
	var arch billing.Archive = archive.Nop{}
	if cfg.S3.Bucket != "" {
		s3Arch, err := archive.NewS3Archive(ctx, cfg.S3)
		if err != nil {
			log.Fatal().Err(err).Msg("archivo S3")
		}
		arch = s3Arch
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("archivo de XML en S3 habilitado")
	}

	// Lock de instancia única: Redis si está configurado, si no local
	var locker billing.Locker = &redislock.LocalLock{}
	if cfg.Redis.URL != "" {
		rdb, err := redislock.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
		locker = redislock.New(rdb, redislock.DefaultKey, cfg.Dispatcher.LockTTL)
	}

	pipeline := billing.NewPipeline(
		emitterRepo, xmlBuilder, signerSvc, soapClient, arch, m, billing.SystemClock{},
		billing.PipelineConfig{Environment: env, CSCID: cfg.SIFEN.CSCID, Sync: cfg.SIFEN.Sync},
		log.Zerolog(),
	)

	prober := connectivity.NewProber(connectivity.Config{
		Hosts:       cfg.Dispatcher.ProbeHosts,
		PingTimeout: cfg.Dispatcher.ProbeTimeout,
		HTTPURL:     cfg.Dispatcher.HTTPProbeURL,
		HTTPTimeout: cfg.Dispatcher.HTTPProbeTimeout,
	}, connectivity.ICMPPinger{}, log.Component("connectivity"))

	dispatcher := billing.NewDispatcher(billing.DispatcherConfig{
		Interval:        cfg.Dispatcher.Interval,
		OfflineInterval: cfg.Dispatcher.OfflineInterval,
		InitialDelay:    cfg.Dispatcher.InitialDelay,
		DelayBetween:    cfg.Dispatcher.DelayBetween,
		MaxPerCycle:     cfg.Dispatcher.MaxPerCycle,
		MaxAttempts:     cfg.Dispatcher.MaxAttempts,
	}, billing.SystemClock{}, prober, docRepo, eventRepo, txRunner, certs, pipeline, locker, m, log.Zerolog())

	issueUC := billing.NewIssueUseCase(docRepo, emitterRepo, txRunner, cdcGen, billing.SystemClock{}, m, cfg.SIFEN.EmitterID, log.Zerolog())
	cancelUC := billing.NewCancelUseCase(docRepo, txRunner, certs, pipeline, billing.SystemClock{}, log.Component("cancel"))
	statusUC := billing.NewStatusUseCase(docRepo, eventRepo, signer.Verify)
	queryUC := billing.NewQueryUseCase(docRepo, txRunner, pipeline, certs, billing.SystemClock{}, log.Zerolog())

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: cfg.SIFEN.Timeout + 10*time.Second,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "SIFEN DTE API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "sifen_env": cfg.SIFEN.Environment})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Issue:      issueUC,
		Cancel:     cancelUC,
		Status:     statusUC,
		Query:      queryUC,
		Dispatcher: dispatcher,
		Metrics:    m.Handler(),
		JWTSecret:  cfg.JWT.Secret,
	})

	if cfg.Dispatcher.Enabled {
		go func() {
			if err := dispatcher.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("despachador finalizado")
			}
		}()
	} else {
		log.Warn().Msg("despachador deshabilitado; los documentos solo se envían con POST /api/dispatcher/run")
	}

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
