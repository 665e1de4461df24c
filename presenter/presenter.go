package presenter

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/gobridge/bridge-points/logging"
	"github.com/gobridge/bridge-points/points"
	"github.com/gobridge/bridge-points/presenter/http/middleware"
	"github.com/gobridge/bridge-points/presenter/http/render"
)

type Presenter struct {
	logger  logging.Logger
	service *points.Service
	root    chi.Router
}

func NewPresenter(logger logging.Logger, service *points.Service) *Presenter {
	p := &Presenter{
		logger:  logger,
		service: service,
		root:    chi.NewMux(),
	}
	p.root.Use(chimiddleware.ThrottleBacklog(throttleLimit, throttleBacklog, 15*time.Second))
	p.root.Use(chimiddleware.RequestID)
	p.root.Use(middleware.NewLoggerMiddleware(p.logger))
	p.root.Use(middleware.Recoverer)
	p.root.Use(chimiddleware.StripSlashes)

	p.root.Get("/health", p.wrapJSONHandler(p.Health))
	p.root.Route("/api", func(r chi.Router) {
		r.Use(middleware.GetAddressMiddleware)
		r.With(middleware.GetLimitMiddleware(pointsDefaultLimit, pointsMaxLimit)).
			Get("/points", p.wrapJSONHandler(p.GetPoints))
		r.With(middleware.GetLimitMiddleware(bridgesDefaultLimit, bridgesMaxLimit), middleware.GetTransferFilterMiddleware).
			Get("/bridges", p.wrapJSONHandler(p.GetBridges))
	})
	return p
}

func (p *Presenter) Handler() http.Handler {
	return p.root
}

// Serve blocks until ctx is cancelled or the listener fails.
func (p *Presenter) Serve(ctx context.Context, addr string) error {
	p.logger.WithField("addr", addr).Info("starting presenter service")
	srv := &http.Server{
		Addr:              addr,
		Handler:           p.root,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			p.logger.WithError(err).Warn("can't gracefully shutdown presenter")
		}
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (p *Presenter) wrapJSONHandler(handler func(ctx context.Context) (interface{}, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := handler(r.Context())
		if err != nil {
			render.Error(w, r, err)
			return
		}
		render.JSON(w, r, http.StatusOK, res)
	}
}

func (p *Presenter) Health(context.Context) (interface{}, error) {
	return &HealthResult{OK: true}, nil
}

func (p *Presenter) GetPoints(ctx context.Context) (interface{}, error) {
	return p.service.GetUserView(ctx, middleware.Address(ctx), middleware.Limit(ctx))
}

func (p *Presenter) GetBridges(ctx context.Context) (interface{}, error) {
	return p.service.ListTransfers(ctx, middleware.TransferFilter(ctx))
}
