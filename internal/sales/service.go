package sales

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/angelmondragon/posrelay/internal/records"
	pkgerrors "github.com/angelmondragon/posrelay/pkg/errors"
	"github.com/angelmondragon/posrelay/pkg/logger"
	"github.com/angelmondragon/posrelay/pkg/metrics"
)

// DefaultDrainTimeout bounds a drain when no timeout is configured.
const DefaultDrainTimeout = 5 * time.Second

var saleIDFields = []string{"id", "ID"}

// Service is the sales queue surface used by the relay handlers.
type Service interface {
	Enqueue(ctx context.Context, centre string, payload []byte) (Sale, error)
	Drain(ctx context.Context, centre string) ([]Sale, error)
	AuditTrail(ctx context.Context, centre, saleID string) ([]AuditEntry, error)
	Depth(ctx context.Context, centre string) (int64, error)
}

// Registrar records that a centre exists. Stores that register centres
// themselves run without one.
type Registrar interface {
	Register(ctx context.Context, centre string) error
}

// ServiceParams wires the sales service.
type ServiceParams struct {
	Store        Store
	Registrar    Registrar
	Logger       *logger.Logger
	Metrics      *metrics.RelayMetrics
	DrainTimeout time.Duration
	Clock        func() time.Time
}

type service struct {
	store        Store
	registrar    Registrar
	logg         *logger.Logger
	metrics      *metrics.RelayMetrics
	drainTimeout time.Duration
	now          func() time.Time
}

// NewService builds the sales service.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "sales store required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	timeout := params.DrainTimeout
	if timeout <= 0 {
		timeout = DefaultDrainTimeout
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		store:        params.Store,
		registrar:    params.Registrar,
		logg:         params.Logger,
		metrics:      params.Metrics,
		drainTimeout: timeout,
		now:          clock,
	}, nil
}

func (s *service) Enqueue(ctx context.Context, centre string, payload []byte) (Sale, error) {
	doc, err := records.Object(payload)
	if err != nil {
		return Sale{}, err
	}
	id, err := records.ExtractID(doc, saleIDFields...)
	if err != nil {
		return Sale{}, err
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, payload); err != nil {
		return Sale{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sale payload")
	}
	sale := Sale{ID: id, Payload: compact.Bytes()}

	if s.registrar != nil {
		if err := s.registrar.Register(ctx, centre); err != nil {
			return Sale{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "register centre")
		}
	}
	if err := s.store.Append(ctx, centre, sale); err != nil {
		return Sale{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "enqueue sale")
	}
	s.metrics.IncEnqueued()
	return sale, nil
}

// Drain empties the centre queue. The store call is bounded by the drain
// timeout; on timeout the drain may or may not have happened, never partly.
func (s *service) Drain(ctx context.Context, centre string) ([]Sale, error) {
	ctx = s.logg.WithCentre(ctx, centre)
	drainCtx, cancel := context.WithTimeout(ctx, s.drainTimeout)
	defer cancel()

	start := time.Now()
	sales, err := s.store.DrainWithAudit(drainCtx, centre, s.now().UTC())
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(drainCtx.Err(), context.DeadlineExceeded) {
			s.metrics.ObserveDrain(metrics.OutcomeTimeout, elapsed, 0)
			return nil, pkgerrors.Wrap(pkgerrors.CodeTimeout, err, "sales drain timed out")
		}
		s.metrics.ObserveDrain(metrics.OutcomeError, elapsed, 0)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "drain sales queue")
	}
	if sales == nil {
		sales = []Sale{}
	}
	s.metrics.ObserveDrain(metrics.OutcomeOK, elapsed, len(sales))
	if len(sales) > 0 {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"event":       "sales.drain.complete",
			"batch_size":  len(sales),
			"duration_ms": elapsed.Milliseconds(),
		}), "sales drained")
	}
	return sales, nil
}

func (s *service) AuditTrail(ctx context.Context, centre, saleID string) ([]AuditEntry, error) {
	if err := records.ValidateID(saleID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sale id")
	}
	entries, err := s.store.AuditTrail(ctx, centre, saleID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale audit")
	}
	if entries == nil {
		entries = []AuditEntry{}
	}
	return entries, nil
}

func (s *service) Depth(ctx context.Context, centre string) (int64, error) {
	depth, err := s.store.Depth(ctx, centre)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read sales queue depth")
	}
	return depth, nil
}
