package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/niksmo/pos-terminal/config"
	"github.com/niksmo/pos-terminal/internal/adapter/filestore"
	"github.com/niksmo/pos-terminal/internal/adapter/httphandler"
	"github.com/niksmo/pos-terminal/internal/adapter/kafka"
	"github.com/niksmo/pos-terminal/internal/adapter/remote"
	"github.com/niksmo/pos-terminal/internal/adapter/storage"
	"github.com/niksmo/pos-terminal/internal/adapter/view"
	"github.com/niksmo/pos-terminal/internal/core/domain"
	"github.com/niksmo/pos-terminal/internal/core/port"
	"github.com/niksmo/pos-terminal/internal/core/service"
	"github.com/niksmo/pos-terminal/pkg/schema"
	"github.com/shopspring/decimal"
	"github.com/twmb/franz-go/pkg/sr"
	"golang.org/x/sync/errgroup"
)

type serdes struct {
	audit         schema.Serde
	productChange schema.Serde
}

type remoteStore struct {
	lister port.ProductsLister
	stock  port.StockWriter
	sales  port.SaleCreator
}

type coreServices struct {
	catalog  *service.CatalogCache
	reserver *service.Reserver
	cart     *service.Cart
	checkout *service.Checkout
}

type App struct {
	ctx          context.Context
	cfg          config.Config
	view         *view.View
	snaps        filestore.CartSnapshots
	sessionStore filestore.SessionStore
	remote       remoteStore
	client       *remote.Client
	sqldb        storage.SQLDB
	serdes       serdes
	audit        kafka.AuditProducer
	consumer     kafka.ProductChangeConsumer
	ownerID      string
	services     coreServices
	httpServer   httphandler.HTTPServer
}

func New(ctx context.Context, cfg config.Config) *App {
	app := &App{ctx: ctx, cfg: cfg}

	app.initLogger()
	app.initView()
	app.initFileStores()
	app.initRemoteStore()
	app.initSerdes()
	app.initAuditProducer()
	app.initCoreServices()
	app.initConsumer()
	app.initInboundAdapters()

	return app
}

func (app *App) initLogger() {
	opts := &slog.HandlerOptions{Level: app.cfg.LogLevel}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, opts))
	slog.SetDefault(logger)
}

func (app *App) initView() {
	app.view = view.New(view.Config{AutoConfirm: true})
}

func (app *App) initFileStores() {
	const op = "App.initFileStores"

	snaps, err := filestore.NewCartSnapshots(app.cfg.StateDir)
	if err != nil {
		app.fallDown(op, err)
	}
	sessionStore, err := filestore.NewSessionStore(app.cfg.StateDir)
	if err != nil {
		app.fallDown(op, err)
	}

	app.snaps = snaps
	app.sessionStore = sessionStore
}

func (app *App) initRemoteStore() {
	const op = "App.initRemoteStore"

	switch app.cfg.Remote.Mode {
	case config.ModePostgres:
		sqldb, err := storage.NewSQLDB(app.ctx, app.cfg.SQLDB)
		if err != nil {
			app.fallDown(op, err)
		}
		products := storage.NewProductsRepository(sqldb)

		app.sqldb = sqldb
		app.remote.lister = products
		app.remote.stock = products
		app.remote.sales = storage.NewSalesRepository(sqldb)
		app.ownerID = app.cfg.Store.OwnerID
	default:
		client, err := remote.NewClient(remote.Config{
			BaseURL: app.cfg.Remote.BaseURL,
			Timeout: app.cfg.Remote.Timeout,
		})
		if err != nil {
			app.fallDown(op, err)
		}

		app.client = client
		app.remote.lister = client
		app.remote.stock = client
		app.remote.sales = client
		app.initSession()
	}
}

func (app *App) initSession() {
	const op = "App.initSession"

	if saved, err := app.sessionStore.Load(); err == nil {
		app.client.SetSession(saved)
		app.ownerID = saved.UserID
	}

	app.client.OnAuthChange(func(s domain.Session) {
		if s.Token == "" {
			_ = app.sessionStore.Clear()
			return
		}
		if err := app.sessionStore.Save(s); err != nil {
			slog.With("op", op).Error("failed to save session", "err", err)
		}
	})

	if app.cfg.Remote.Email != "" {
		s, err := app.client.Authenticate(
			app.ctx, app.cfg.Remote.Email, app.cfg.Remote.Password,
		)
		if err != nil {
			app.fallDown(op, err)
		}
		app.ownerID = s.UserID
	}

	if app.ownerID == "" {
		app.fallDown(op, fmt.Errorf("no session and no credentials"))
	}
}

func (app *App) initSerdes() {
	const op = "App.initSerdes"
	urls := app.cfg.Broker.SchemaRegistryURLs
	ctx := app.ctx

	srClient, err := sr.NewClient(sr.URLs(urls...))
	if err != nil {
		app.fallDown(op, err)
	}

	schemaCreater := schema.NewSchemaCreater(srClient)

	auditSS := app.cfg.Broker.Topics.Audit + "-value"
	auditSerde, err := schema.NewSerdeAuditEntryV1(
		ctx,
		schema.SubjectOpt(auditSS),
		schema.SchemaIdentifierOpt(schemaCreater),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	changesSS := app.cfg.Broker.Topics.ProductChanges + "-value"
	changeSerde, err := schema.NewSerdeProductChangeV1(
		ctx,
		schema.SubjectOpt(changesSS),
		schema.SchemaIdentifierOpt(schemaCreater),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	app.serdes.audit = auditSerde
	app.serdes.productChange = changeSerde
}

func (app *App) initAuditProducer() {
	const op = "App.initAuditProducer"

	audit, err := kafka.NewAuditProducer(
		kafka.ProducerClientOpt(
			app.ctx, app.cfg.Broker.SeedBrokers, app.cfg.Broker.Topics.Audit,
		),
		kafka.ProducerEncoderOpt(app.serdes.audit),
	)
	if err != nil {
		app.fallDown(op, err)
	}
	app.audit = audit
}

func (app *App) initCoreServices() {
	const op = "App.initCoreServices"

	exchangeRate, err := decimal.NewFromString(app.cfg.Store.ExchangeRate)
	if err != nil {
		app.fallDown(op, err)
	}

	businessTZ, err := time.LoadLocation(app.cfg.Store.Timezone)
	if err != nil {
		app.fallDown(op, err)
	}

	catalog := service.NewCatalogCache(
		app.remote.lister, app.view, app.ownerID,
	)

	reserver := service.NewReserver(
		app.ctx,
		service.ReserveConfig{
			DebounceWindow: app.cfg.Reserve.DebounceWindow,
			BusyRetry:      app.cfg.Reserve.BusyRetry,
			DrainTimeout:   app.cfg.Reserve.DrainTimeout,
		},
		catalog, app.remote.stock, app.audit, app.view, app.ownerID,
	)
	catalog.SetPendingResolver(reserver.PendingDelta)

	cart := service.NewCart(
		app.ctx,
		service.CartConfig{
			Currency:          app.cfg.Store.Currency,
			SecondaryCurrency: app.cfg.Store.SecondaryCurrency,
			ExchangeRate:      exchangeRate,
		},
		catalog, reserver, app.snaps, app.view,
	)
	reserver.OnFlushFailure(cart.RollbackQuantity)

	checkout := service.NewCheckout(
		service.CheckoutConfig{
			InvoicePrefix: app.cfg.Store.InvoicePrefix,
			BuyerID:       app.ownerID,
			ExchangeRate:  exchangeRate,
			BusinessTZ:    businessTZ,
		},
		cart, catalog, reserver, app.remote.sales, app.audit, app.view,
	)

	if err := catalog.Load(app.ctx); err != nil {
		app.fallDown(op, err)
	}
	if err := cart.Restore(app.ctx); err != nil {
		slog.With("op", op).Warn("failed to restore cart", "err", err)
	}

	app.services = coreServices{catalog, reserver, cart, checkout}
}

func (app *App) initConsumer() {
	const op = "App.initConsumer"

	consumer, err := kafka.NewProductChangeConsumer(
		kafka.ConsumerClientOpt(
			app.cfg.Broker.SeedBrokers,
			app.cfg.Broker.Topics.ProductChanges,
			app.cfg.Broker.Consumers.ProductChangesGroup,
		),
		kafka.ConsumerDecoderOpt(app.serdes.productChange),
		kafka.ConsumerReloaderOpt(app.services.catalog, app.ownerID),
	)
	if err != nil {
		app.fallDown(op, err)
	}
	app.consumer = consumer
}

func (app *App) initInboundAdapters() {
	addr := app.cfg.HTTPServerAddr
	mux := http.NewServeMux()
	httphandler.RegisterCatalog(mux, app.services.catalog, app.services.catalog)
	httphandler.RegisterCart(mux, app.services.cart, app.services.catalog)
	httphandler.RegisterCheckout(mux, app.services.checkout)
	httphandler.RegisterNotifications(mux, app.view)

	handler := httphandler.AllowJSON(mux)
	app.httpServer = httphandler.NewHTTPServer(addr, handler)
}

func (app *App) Run(stopFn context.CancelFunc) {
	g, ctx := errgroup.WithContext(app.ctx)
	g.Go(func() error {
		app.httpServer.Run(stopFn)
		return nil
	})
	g.Go(func() error {
		app.consumer.Run(ctx)
		return nil
	})
	go func() {
		defer stopFn()
		_ = g.Wait()
	}()

	slog.Info("application is running")
}

func (app *App) Close(ctx context.Context) {
	slog.Info("application is closing...")

	// let in-flight reservations reach the remote store
	if err := app.services.reserver.WaitUntilDrained(ctx); err != nil {
		slog.Warn("reservations not drained", "err", err)
	}

	app.httpServer.Close(ctx)
	app.consumer.Close()
	app.audit.Close()
	if app.sqldb.DB != nil {
		app.sqldb.Close()
	}

	slog.Info("application is closed")
}

func (app *App) fallDown(op string, err error) {
	panic(fmt.Errorf("%s: %w", op, err))
}
