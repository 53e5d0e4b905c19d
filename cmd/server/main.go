package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/uptrace/bun/migrate"

	"github.com/escrowhub/escrowhub.go/db"
	"github.com/escrowhub/escrowhub.go/db/migrations"
	"github.com/escrowhub/escrowhub.go/ledger"
	"github.com/escrowhub/escrowhub.go/lib/logging"
	"github.com/escrowhub/escrowhub.go/lib/service"
	"github.com/escrowhub/escrowhub.go/lib/tokens"
	"github.com/escrowhub/escrowhub.go/lib/transport"
	"github.com/escrowhub/escrowhub.go/rabbitmq"
	"github.com/escrowhub/escrowhub.go/wallet"
)

func main() {

	c := &service.Config{}

	// Load configruation from environment variables
	err := godotenv.Load(".env")
	if err != nil {
		fmt.Println("Failed to load .env file")
	}
	err = envconfig.Process("", c)
	if err != nil {
		log.Fatalf("Error loading environment variables: %v", err)
	}

	// Setup logging to STDOUT or a configured log file
	logger := logging.Logger(c.LogFilePath)

	arbiter, err := ledger.ParseIdentity(c.ArbiterIdentity)
	if err != nil {
		logger.Fatalf("Invalid arbiter identity: %v", err)
	}

	startupCtx := context.Background()

	// Open a DB connection when a DATABASE_URI is configured, otherwise run
	// fully in memory
	var store ledger.Store
	var port ledger.ValueTransferPort
	svc := &service.EscrowService{
		Config:        c,
		Logger:        logger,
		EventLog:      service.NewEventLog(),
		InvoicePubSub: service.NewPubsub(logger),
	}
	if c.DatabaseUri != "" {
		dbConn, err := db.Open(c)
		if err != nil {
			logger.Fatalf("Error initializing db connection: %v", err)
		}

		// Migrate the DB
		migrator := migrate.NewMigrator(dbConn, migrations.Migrations)
		err = migrator.Init(startupCtx)
		if err != nil {
			logger.Fatalf("Error initializing db migrator: %v", err)
		}
		_, err = migrator.Migrate(startupCtx)
		if err != nil {
			logger.Fatalf("Error migrating database: %v", err)
		}

		svc.DB = dbConn
		store = db.NewStore(dbConn)
		port = wallet.NewBookkeeper(dbConn)
	} else {
		logger.Info("No DATABASE_URI configured, running on the in-memory store")
		store = ledger.NewMemoryStore()
		port = wallet.NewMemoryBook()
	}

	escrowLedger, err := ledger.New(store, port, arbiter, ledger.WithEmitter(svc))
	if err != nil {
		logger.Fatalf("Error initializing ledger: %v", err)
	}
	svc.Ledger = escrowLedger

	// Setup exception tracking with Sentry if configured
	// sentry init needs to happen before the echo middlewares are added
	if c.SentryDSN != "" {
		if err = sentry.Init(sentry.ClientOptions{
			Dsn:              c.SentryDSN,
			IgnoreErrors:     []string{"401"},
			EnableTracing:    c.SentryTracesSampleRate > 0,
			TracesSampleRate: c.SentryTracesSampleRate,
		}); err != nil {
			logger.Errorf("sentry init error: %v", err)
		}
	}

	// If no RABBITMQ_URI was provided we will not attempt to create a client
	// No rabbitmq features will be available in this case.
	if c.RabbitMQUri != "" {
		amqpClient, err := rabbitmq.DialAMQP(c.RabbitMQUri, rabbitmq.WithAmqpLogger(logger))
		if err != nil {
			logger.Fatal(err)
		}

		rabbitmqClient, err := rabbitmq.NewClient(amqpClient,
			rabbitmq.WithLogger(logger),
			rabbitmq.WithInvoiceExchange(c.RabbitMQInvoiceExchange),
		)
		if err != nil {
			logger.Fatal(err)
		}

		// close the connection gently at the end of the runtime
		defer rabbitmqClient.Close()
		svc.RabbitMQClient = rabbitmqClient
	}

	//init echo server
	e := transport.InitEcho(c, logger)

	logMw := transport.CreateLoggingMiddleware(logger)
	// strict rate limit for requests that move value
	strictRateLimitMiddleware := transport.CreateRateLimitMiddleware(c.StrictRateLimit, c.BurstRateLimit)

	secured := e.Group("", tokens.Middleware(c.JWTSecret), logMw)
	securedWithStrictRateLimit := e.Group("", tokens.Middleware(c.JWTSecret), strictRateLimitMiddleware, logMw)

	transport.RegisterV2Endpoints(svc, e, secured, securedWithStrictRateLimit, strictRateLimitMiddleware, tokens.AdminTokenMiddleware(c.AdminToken), logMw)

	var backgroundWg sync.WaitGroup
	backGroundCtx, _ := signal.NotifyContext(context.Background(), os.Interrupt)

	//Start webhook subscription
	if svc.Config.WebhookUrl != "" {
		backgroundWg.Add(1)
		go func() {
			svc.StartWebhookSubscription(backGroundCtx, svc.Config.WebhookUrl)
			svc.Logger.Info("Webhook routine done")
			backgroundWg.Done()
		}()
	}
	//Start rabbit publisher
	if svc.RabbitMQClient != nil {
		backgroundWg.Add(1)
		go func() {
			err = svc.RabbitMQClient.StartPublishEvents(backGroundCtx, svc.SubscribeAllEvents)
			if err != nil {
				svc.Logger.Error(err)
				sentry.CaptureException(err)
			}

			svc.Logger.Info("Rabbit event publisher done")
			backgroundWg.Done()
		}()
	}

	//Start Prometheus server if necessary
	if svc.Config.EnablePrometheus {
		go transport.StartPrometheusEcho(logger, svc, e)
	}

	// Start server
	go func() {
		if err := e.Start(fmt.Sprintf(":%v", c.Port)); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()

	<-backGroundCtx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
	//Wait for graceful shutdown of background routines
	backgroundWg.Wait()
	svc.Logger.Info("EscrowHub exiting gracefully. Goodbye.")
}
