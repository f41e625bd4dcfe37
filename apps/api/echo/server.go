package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/michezo/apps/api/echo/handlers"
	"github.com/trezcool/michezo/apps/api/echo/helpers"
	"github.com/trezcool/michezo/core"
	"github.com/trezcool/michezo/core/artifact"
	"github.com/trezcool/michezo/core/run"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool

		Logger      core.Logger
		RunSvc      *run.Service
		ArtifactSvc *artifact.Service

		// PingDB is an optional liveness probe for /v1/health.
		PingDB func() error
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts     *Options
		app      *echo.Echo
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts:     opts,
		app:      echo.New(),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	debug := core.Conf.Debug

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = helpers.NewAppHTTPErrorHandler(s.opts.Logger, s.signalShutdown)
	s.app.Debug = debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	v1.GET("/health", s.health)

	jwt := middleware.JWTWithConfig(helpers.AppJWTConfig)

	handlers.RegisterRunAPI(v1, jwt, s.opts.RunSvc)
	handlers.RegisterArtifactAPI(v1, jwt, s.opts.ArtifactSvc)
}

func (s *server) Start() {
	signal.Notify(s.shutdown, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() { errCh <- s.app.Start(s.opts.Address) }()

	select {
	case err := <-errCh:
		s.app.Logger.Fatal(err)
	case sig := <-s.shutdown:
		s.opts.Logger.Info("shutting down", map[string]interface{}{"signal": sig.String()})
		ctx, cancel := context.WithTimeout(context.Background(), core.Conf.Server.ShutdownTimeout)
		defer cancel()
		if err := s.Stop(ctx); err != nil {
			s.app.Logger.Fatal(err)
		}
	}
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Michezo Play API!")
}

func (s *server) health(ctx echo.Context) error {
	status := echo.Map{"status": "ok"}
	if s.opts.PingDB != nil {
		if err := s.opts.PingDB(); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
		}
	}
	return ctx.JSON(http.StatusOK, status)
}
