package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/spf13/afero"

	"lickey/internal/config"
	apperrors "lickey/internal/errors"
	"lickey/internal/infrastructure"
	"lickey/internal/license"
	customMiddleware "lickey/internal/middleware"
	"lickey/internal/security"
	"lickey/internal/services"
	handlers "lickey/internal/transport/http"
	"lickey/pkg/contracts"
)

// AppName is the program name used in logs and version output.
const AppName = "licsvr"

// Application represents the verification server
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	HardwareKeys  *security.HardwareKeyGetter
	Licenses      services.LicenseService
	Health        *services.HealthService

	listener net.Listener
	serveErr chan error
}

// Option customizes New.
type Option func(*options)

type options struct {
	fs            afero.Fs
	logger        *slog.Logger
	keyOpts       []security.HardwareKeyOption
	licenseLoader *license.Loader
}

// WithFs replaces the OS filesystem used to read license files.
func WithFs(fs afero.Fs) Option {
	return func(o *options) { o.fs = fs }
}

// WithLogger replaces the process logger built from cfg.Logging.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithHardwareKeyOptions configures hardware key enumeration.
func WithHardwareKeyOptions(opts ...security.HardwareKeyOption) Option {
	return func(o *options) { o.keyOpts = append(o.keyOpts, opts...) }
}

// WithLoader supplies the license cache, e.g. one with a fixed clock.
func WithLoader(loader *license.Loader) Option {
	return func(o *options) { o.licenseLoader = loader }
}

// NewApplication loads configuration from the environment and config file
// and wires the server.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return New(cfg)
}

// New wires the server from cfg. The signing secret must be set.
func New(cfg *config.Config, opts ...Option) (*Application, error) {
	o := &options{fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(o)
	}

	if err := cfg.ValidateSecret(); err != nil {
		return nil, err
	}

	logger := o.logger
	if logger == nil {
		var err error
		logger, err = infrastructure.InitializeLogger(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.String("address", cfg.Server.Addr()))

	otelProviders, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
	}
	if err := app.initializeServices(o); err != nil {
		_ = otelProviders.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	if err := app.setupRouter(); err != nil {
		_ = otelProviders.Shutdown(context.Background())
		return nil, err
	}
	app.createServer()
	return app, nil
}

func (a *Application) initializeServices(o *options) error {
	codec, err := license.NewCodec([]byte(a.Config.License.Secret))
	if err != nil {
		return err
	}

	keys, err := security.NewHardwareKeyGetter(a.Logger, a.Config.License.HardwareKeys, o.keyOpts...)
	if err != nil {
		return err
	}
	a.HardwareKeys = keys

	loader := o.licenseLoader
	if loader == nil {
		loader = license.NewLoader()
	}

	licenses, err := services.NewLicenseService(services.LicenseServiceConfig{
		Codec:  codec,
		Loader: loader,
		Keys:   keys,
		Fs:     o.fs,
		Dir:    a.Config.License.Dir,
		Files:  a.Config.License.Files,
		Tracer: a.OTelProviders.Tracer,
		Meter:  a.OTelProviders.Meter,
		Logger: a.Logger,
	})
	if err != nil {
		return err
	}
	a.Licenses = licenses
	a.Health = services.NewHealthService(licenses, a.Logger)
	return nil
}

// setupRouter orders middleware RequestID, RealIP, OTel, logger, recoverer,
// timeout.
func (a *Application) setupRouter() error {
	errHandler := apperrors.NewErrorHandler(a.Logger, false)

	r := chi.NewRouter()
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
	if err != nil {
		return fmt.Errorf("failed to create OpenTelemetry middleware: %w", err)
	}
	r.Use(otelMiddleware.Handler)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(errHandler))
	r.Use(customMiddleware.SecurityHeaders)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.NotFound(errHandler.NotFound)
	r.MethodNotAllowed(errHandler.MethodNotAllowed)

	r.Get("/hello", handlers.Hello)
	r.Handle("/metrics", handlers.NewMetricsHandler(a.OTelProviders.MetricsHandler))

	var verifyMiddleware []func(http.Handler) http.Handler
	if rl := a.Config.Security.RateLimit; rl.Enabled {
		verifyMiddleware = append(verifyMiddleware,
			customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.Logger).Handler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))
		r.Mount("/license", handlers.NewLicenseHandler(a.Licenses, errHandler, a.Logger).Routes(verifyMiddleware...))
		r.Mount("/health", handlers.NewHealthHandler(a.Health, a.Licenses, errHandler, a.Logger).Routes())
	})

	a.Router = r
	return nil
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         a.Config.Server.Addr(),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(a.Logger.Handler(), slog.LevelError),
	}
}

// Start loads the startup licenses and begins serving. License failures are
// logged; the server still starts so that licenses can be loaded later.
func (a *Application) Start(ctx context.Context) error {
	results, err := a.Licenses.LoadStartup(ctx)
	if err != nil {
		a.Logger.WarnContext(ctx, "Some licenses could not be loaded", slog.String("error", err.Error()))
	}

	keys, keyErr := a.HardwareKeys.Strings()
	if keyErr != nil {
		a.Logger.WarnContext(ctx, "No hardware key available", slog.String("error", keyErr.Error()))
	}

	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	a.listener = ln
	a.serveErr = make(chan error, 1)

	go func() {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.serveErr <- err
		}
		close(a.serveErr)
	}()

	a.Logger.InfoContext(ctx, "Application started",
		slog.String("address", ln.Addr().String()),
		slog.Int("licenses", len(results)),
		slog.Any("hardware_keys", keys))
	return nil
}

// Addr is the bound listen address, valid after Start.
func (a *Application) Addr() string {
	if a.listener == nil {
		return a.Server.Addr
	}
	return a.listener.Addr().String()
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}
	if a.serveErr != nil {
		if err := <-a.serveErr; err != nil {
			errs = append(errs, fmt.Errorf("server error: %w", err))
		}
	}
	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

// Run serves until SIGINT or SIGTERM, or until the server fails.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		a.Logger.Info("Received interrupt signal")
	case err := <-a.serveErr:
		if err != nil {
			a.Logger.Error("Server error", slog.String("error", err.Error()))
		}
	}
	return a.Stop(context.Background())
}
