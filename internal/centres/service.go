package centres

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/posrelay/internal/records"
	pkgerrors "github.com/angelmondragon/posrelay/pkg/errors"
	pkgredis "github.com/angelmondragon/posrelay/pkg/redis"
)

// Service is the per-centre relay surface for config and keyed records.
type Service interface {
	Exists(ctx context.Context, centre string) (bool, error)
	Register(ctx context.Context, centre string) error
	SetConfig(ctx context.Context, centre string, cfg []byte) error
	Config(ctx context.Context, centre string) (json.RawMessage, error)
	List(ctx context.Context, centre string, c Collection) ([]json.RawMessage, error)
	Create(ctx context.Context, centre string, c Collection, body []byte) (Record, error)
	Update(ctx context.Context, centre string, c Collection, id string, body []byte) (Record, error)
	History(ctx context.Context, centre string, c Collection, id string) ([]HistoryEntry, error)
}

// Record identifies a written record.
type Record struct {
	ID      string
	IDField string
}

// MarshalJSON renders {"id":..,"<id field>":..}.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"id": r.ID, r.IDField: r.ID})
}

// HistoryEntry is one stored version of a tracked record.
type HistoryEntry struct {
	RecordedAt time.Time       `json:"recorded_at"`
	Value      json.RawMessage `json:"value"`
}

// UnknownCentre builds the not-found error returned for unregistered centres.
func UnknownCentre(centre string) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("Unable to find %s", centre))
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires the centres service.
func NewService(repo Repository, clock func() time.Time) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "centres repository required")
	}
	if clock == nil {
		clock = time.Now
	}
	return &service{repo: repo, now: clock}, nil
}

func (s *service) Exists(ctx context.Context, centre string) (bool, error) {
	ok, err := s.repo.Exists(ctx, centre)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check centre")
	}
	return ok, nil
}

func (s *service) Register(ctx context.Context, centre string) error {
	if err := records.ValidateID(centre); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid centre")
	}
	if err := s.repo.Register(ctx, centre); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "register centre")
	}
	return nil
}

func (s *service) SetConfig(ctx context.Context, centre string, cfg []byte) error {
	if err := records.ValidateID(centre); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid centre")
	}
	compact, err := compactJSON(cfg)
	if err != nil {
		return err
	}
	if err := s.repo.SetConfig(ctx, centre, compact); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store centre config")
	}
	return nil
}

func (s *service) Config(ctx context.Context, centre string) (json.RawMessage, error) {
	cfg, ok, err := s.repo.Config(ctx, centre)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load centre config")
	}
	if !ok {
		return json.RawMessage(`{}`), nil
	}
	return json.RawMessage(cfg), nil
}

func (s *service) List(ctx context.Context, centre string, c Collection) ([]json.RawMessage, error) {
	out, err := s.repo.List(ctx, centre, c)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list "+c.Name)
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, centre string, c Collection, body []byte) (Record, error) {
	if err := records.ValidateID(centre); err != nil {
		return Record{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid centre")
	}
	doc, err := records.Object(body)
	if err != nil {
		return Record{}, err
	}
	id, err := records.ExtractID(doc, c.IDFields...)
	if err != nil {
		return Record{}, err
	}
	compact, err := compactJSON(body)
	if err != nil {
		return Record{}, err
	}
	if err := s.repo.Put(ctx, centre, c, id, compact, s.now()); err != nil {
		return Record{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store "+c.Name)
	}
	return Record{ID: id, IDField: c.IDField()}, nil
}

// Update replaces an existing record. The id comes from the path.
func (s *service) Update(ctx context.Context, centre string, c Collection, id string, body []byte) (Record, error) {
	if err := records.ValidateID(id); err != nil {
		return Record{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid record id")
	}
	if _, err := records.Object(body); err != nil {
		return Record{}, err
	}
	found, err := s.repo.Has(ctx, centre, c, id)
	if err != nil {
		return Record{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check "+c.Name)
	}
	if !found {
		return Record{}, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("Unable to find %s", id))
	}
	compact, err := compactJSON(body)
	if err != nil {
		return Record{}, err
	}
	if err := s.repo.Put(ctx, centre, c, id, compact, s.now()); err != nil {
		return Record{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store "+c.Name)
	}
	return Record{ID: id, IDField: c.IDField()}, nil
}

func (s *service) History(ctx context.Context, centre string, c Collection, id string) ([]HistoryEntry, error) {
	if !c.Tracked {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, c.Name+" keep no history")
	}
	found, err := s.repo.Has(ctx, centre, c, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check "+c.Name)
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("Unable to find %s", id))
	}
	stored, err := s.repo.History(ctx, centre, c, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load history")
	}
	return toHistory(stored), nil
}

func toHistory(stored []pkgredis.HistoryEntry) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(stored))
	for _, e := range stored {
		out = append(out, HistoryEntry{RecordedAt: time.UnixMilli(e.RecordedAt).UTC(), Value: e.Value})
	}
	return out
}

func compactJSON(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeMalformedPayload, err, "invalid JSON").
			WithDetails(map[string]any{"error": err.Error()})
	}
	return buf.Bytes(), nil
}
