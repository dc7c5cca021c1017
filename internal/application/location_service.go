package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/voicewms/dispatch-service/internal/layout"
	"github.com/voicewms/dispatch-service/pkg/errors"
	"github.com/voicewms/dispatch-service/pkg/events"
	"github.com/voicewms/dispatch-service/pkg/logging"
	"github.com/voicewms/dispatch-service/pkg/metrics"
	"github.com/voicewms/dispatch-service/pkg/outbox"
)

// LayoutRepository persists warehouse layout definitions.
type LayoutRepository interface {
	Save(ctx context.Context, l *layout.Layout) error
	FindByName(ctx context.Context, name string) (*layout.Layout, error)
	FindLatest(ctx context.Context) (*layout.Layout, error)
}

// LocationRepository persists generated storage addresses.
type LocationRepository interface {
	// ReplaceForLayout atomically swaps the address set for a layout.
	ReplaceForLayout(ctx context.Context, layoutName string, addrs []layout.Address) error
	// FindByCode looks a code up within one layout; codes are only
	// unique per layout.
	FindByCode(ctx context.Context, layoutName, code string) (*layout.Address, error)
	Search(ctx context.Context, query AddressQuery) ([]layout.Address, error)
	CountForLayout(ctx context.Context, layoutName string) (int64, error)
}

// LocationService owns the warehouse addressing scheme: layout
// generation, code parsing and check-digit verification.
type LocationService struct {
	layouts   LayoutRepository
	locations LocationRepository
	outbox    outbox.Repository
	factory   *events.EventFactory
	logger    *logging.Logger
	metrics   *metrics.Metrics

	mu    sync.RWMutex
	codec *layout.Codec
}

// NewLocationService creates a location service. The active codec is
// loaded lazily from the latest persisted layout on first use.
func NewLocationService(
	layouts LayoutRepository,
	locations LocationRepository,
	outboxRepo outbox.Repository,
	factory *events.EventFactory,
	logger *logging.Logger,
	m *metrics.Metrics,
) *LocationService {
	return &LocationService{
		layouts:   layouts,
		locations: locations,
		outbox:    outboxRepo,
		factory:   factory,
		logger:    logger.WithComponent("location_service"),
		metrics:   m,
	}
}

// GenerateLayout builds and persists the full address set for a layout
// given by template name or inline definition.
func (s *LocationService) GenerateLayout(ctx context.Context, req *GenerateLayoutRequest) (*GenerateLayoutResponse, error) {
	var (
		l   *layout.Layout
		err error
	)
	switch {
	case req.Template != "" && req.Layout != nil:
		return nil, errors.ErrValidation("provide either a template name or an inline layout, not both")
	case req.Template != "":
		l, err = layout.Template(req.Template)
		if err != nil {
			return nil, mapDomainError(err)
		}
	case req.Layout != nil:
		l = toLayout(req.Layout)
	default:
		return nil, errors.ErrValidation("a template name or an inline layout is required")
	}

	return s.GenerateFromLayout(ctx, l)
}

// GenerateFromLayout generates addresses from an already-built layout.
// Used by GenerateLayout and by the startup bootstrap that reads a
// layout file.
func (s *LocationService) GenerateFromLayout(ctx context.Context, l *layout.Layout) (*GenerateLayoutResponse, error) {
	codec, err := layout.NewCodec(l)
	if err != nil {
		return nil, mapDomainError(err)
	}

	addrs, err := codec.Generate()
	if err != nil {
		return nil, mapDomainError(err)
	}

	if err := s.layouts.Save(ctx, codec.Layout()); err != nil {
		return nil, mapDomainError(err)
	}
	if err := s.locations.ReplaceForLayout(ctx, l.Name, addrs); err != nil {
		return nil, mapDomainError(err)
	}

	s.mu.Lock()
	s.codec = codec
	s.mu.Unlock()

	summary := codec.Summarize()
	s.metrics.RecordAddressesGenerated(l.Name, len(addrs))
	s.logger.Event(ctx, "layout_generated", map[string]any{
		"layout":    l.Name,
		"sections":  len(l.Sections),
		"addresses": len(addrs),
	})
	s.publishLayoutGenerated(ctx, l.Name, len(l.Sections), len(addrs))

	return &GenerateLayoutResponse{
		Layout:      l.Name,
		Sections:    len(l.Sections),
		Addresses:   len(addrs),
		BySection:   summary.BySection,
		ByType:      summary.ByType,
		ByEquipment: summary.ByEquipment,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// publishLayoutGenerated enqueues the layout event through the outbox.
// Generation already succeeded, so a write failure here is logged
// rather than surfaced.
func (s *LocationService) publishLayoutGenerated(ctx context.Context, name string, sections, addresses int) {
	event := s.factory.CreateLayoutGeneratedEvent(ctx, name, sections, addresses)
	outboxEvent, err := outbox.NewOutboxEvent(name, "WarehouseLayout", event)
	if err != nil {
		s.logger.WithError(err).Warn("failed to build layout outbox event", "layout", name)
		return
	}
	if err := s.outbox.Save(ctx, outboxEvent); err != nil {
		s.logger.WithError(err).Warn("failed to enqueue layout event", "layout", name)
	}
}

// Resolve parses a location code against the active layout, verifies
// its check digit and enriches it with the persisted occupancy record.
func (s *LocationService) Resolve(ctx context.Context, code string) (*AddressDTO, error) {
	codec, err := s.currentCodec(ctx)
	if err != nil {
		return nil, err
	}

	addr, err := codec.Parse(code)
	if err != nil {
		return nil, mapDomainError(err)
	}

	if stored, err := s.locations.FindByCode(ctx, codec.Layout().Name, addr.Code); err == nil && stored != nil {
		// A stored digit diverging from the derived one means the record
		// was corrupted or tampered with.
		if err := codec.Verify(stored); err != nil {
			s.logger.WithError(err).Error("stored check digit diverges from derived", "code", addr.Code)
			return nil, mapDomainError(err)
		}
		addr.Capacity = stored.Capacity
		addr.CurrentOccupancy = stored.CurrentOccupancy
		addr.IsActive = stored.IsActive
	}

	return ToAddressDTO(addr, codec.SpokenForm(addr)), nil
}

// VerifyCheckDigit confirms a spoken check digit matches the one
// derived from the code.
func (s *LocationService) VerifyCheckDigit(ctx context.Context, code string, digit int) error {
	codec, err := s.currentCodec(ctx)
	if err != nil {
		return err
	}
	addr, err := codec.Parse(code)
	if err != nil {
		return mapDomainError(err)
	}
	if addr.CheckDigit != digit {
		return mapDomainError(fmt.Errorf("%w: spoken %d, expected for %s", layout.ErrCheckDigitMismatch, digit, addr.Code))
	}
	return nil
}

// SearchAddresses lists persisted addresses matching the query.
func (s *LocationService) SearchAddresses(ctx context.Context, query *AddressQuery) ([]*AddressDTO, error) {
	if query.Limit <= 0 {
		query.Limit = defaultListLimit
	}
	addrs, err := s.locations.Search(ctx, *query)
	if err != nil {
		return nil, mapDomainError(err)
	}

	dtos := make([]*AddressDTO, len(addrs))
	for i := range addrs {
		dtos[i] = ToAddressDTO(&addrs[i], "")
	}
	return dtos, nil
}

// Summary reports address counts for the active layout.
func (s *LocationService) Summary(ctx context.Context) (*GenerateLayoutResponse, error) {
	codec, err := s.currentCodec(ctx)
	if err != nil {
		return nil, err
	}

	l := codec.Layout()
	summary := codec.Summarize()
	return &GenerateLayoutResponse{
		Layout:      l.Name,
		Sections:    len(l.Sections),
		Addresses:   codec.AddressCount(),
		BySection:   summary.BySection,
		ByType:      summary.ByType,
		ByEquipment: summary.ByEquipment,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// Templates lists the built-in layout template names.
func (s *LocationService) Templates() []string {
	return layout.TemplateNames()
}

// currentCodec returns the active codec, loading the latest persisted
// layout on first use.
func (s *LocationService) currentCodec(ctx context.Context) (*layout.Codec, error) {
	s.mu.RLock()
	codec := s.codec
	s.mu.RUnlock()
	if codec != nil {
		return codec, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.codec != nil {
		return s.codec, nil
	}

	l, err := s.layouts.FindLatest(ctx)
	if err != nil {
		return nil, errors.ErrNotFound("warehouse layout").Wrap(err)
	}
	codec, err = layout.NewCodec(l)
	if err != nil {
		return nil, mapDomainError(err)
	}
	s.codec = codec
	return codec, nil
}
