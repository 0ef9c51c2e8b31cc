package flights

import (
	"context"
	"errors"
	"time"

	"github.com/avlobanov/aerobook/internal/domain"
	"github.com/avlobanov/aerobook/internal/repository"
	"go.uber.org/zap"
)

type FlightUseCase interface {
	List(ctx context.Context, filter repository.FlightFilter) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	Create(ctx context.Context, input FlightInput) (*domain.Flight, error)
	Update(ctx context.Context, id int64, input FlightInput) (*domain.Flight, error)
	Delete(ctx context.Context, id int64) error
}

type Cache interface {
	GetFlights(ctx context.Context) ([]domain.Flight, error)
	SetFlights(ctx context.Context, flights []domain.Flight) error
	InvalidateFlights(ctx context.Context) error
}

type FlightInput struct {
	FlightNumber  string            `json:"flight_number"`
	Airline       string            `json:"airline"`
	Origin        string            `json:"origin"`
	Destination   string            `json:"destination"`
	DepartureTime string            `json:"departure_time"`
	ArrivalTime   string            `json:"arrival_time"`
	PriceCents    int64             `json:"price_cents"`
	TotalSeats    int               `json:"total_seats"`
	CabinClass    domain.CabinClass `json:"cabin_class"`
	Active        *bool             `json:"active"`
}

type FlightService struct {
	repo   repository.FlightRepository
	cache  Cache
	logger *zap.Logger
}

func NewFlightService(repo repository.FlightRepository, cache Cache, logger *zap.Logger) *FlightService {
	return &FlightService{repo: repo, cache: cache, logger: logger}
}

// List serves the default public listing (active flights, no filters) from
// cache when possible; filtered queries always hit the database.
func (s *FlightService) List(ctx context.Context, filter repository.FlightFilter) ([]domain.Flight, error) {
	cacheable := filter == repository.FlightFilter{ActiveOnly: true}

	if cacheable && s.cache != nil {
		if cached, err := s.cache.GetFlights(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	flights, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if cacheable && s.cache != nil {
		if err := s.cache.SetFlights(ctx, flights); err != nil {
			s.logger.Warn("failed to cache flights", zap.Error(err))
		}
	}
	return flights, nil
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	flight, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound("flight")
		}
		return nil, err
	}
	return flight, nil
}

func (s *FlightService) Create(ctx context.Context, input FlightInput) (*domain.Flight, error) {
	flight, err := flightFromInput(input)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, flight); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.Conflict("flight number already exists")
		}
		return nil, err
	}

	s.invalidate(ctx)
	return flight, nil
}

func (s *FlightService) Update(ctx context.Context, id int64, input FlightInput) (*domain.Flight, error) {
	flight, err := flightFromInput(input)
	if err != nil {
		return nil, err
	}
	flight.ID = id

	if err := s.repo.Update(ctx, flight); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, domain.NotFound("flight")
		case errors.Is(err, repository.ErrDuplicate):
			return nil, domain.Conflict("flight number already exists")
		case errors.Is(err, repository.ErrNoSeats):
			return nil, domain.Conflict("total_seats cannot drop below the seats already booked")
		}
		return nil, err
	}

	s.invalidate(ctx)
	return s.GetByID(ctx, id)
}

func (s *FlightService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return domain.NotFound("flight")
		case errors.Is(err, repository.ErrReferenced):
			return domain.Conflict("flight has bookings and cannot be deleted")
		}
		return err
	}

	s.invalidate(ctx)
	return nil
}

func (s *FlightService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateFlights(ctx); err != nil {
		s.logger.Warn("failed to invalidate flights cache", zap.Error(err))
	}
}

func flightFromInput(input FlightInput) (*domain.Flight, error) {
	fields := map[string]string{}
	if input.FlightNumber == "" {
		fields["flight_number"] = "is required"
	}
	if input.Airline == "" {
		fields["airline"] = "is required"
	}
	if input.Origin == "" {
		fields["origin"] = "is required"
	}
	if input.Destination == "" {
		fields["destination"] = "is required"
	}
	if input.PriceCents < 0 {
		fields["price_cents"] = "must not be negative"
	}
	if input.TotalSeats < 0 {
		fields["total_seats"] = "must not be negative"
	}
	if !input.CabinClass.Valid() {
		fields["cabin_class"] = "must be ECONOMY, BUSINESS or FIRST"
	}

	departure, err := parseTime(input.DepartureTime)
	if err != nil {
		fields["departure_time"] = "must be an RFC3339 timestamp"
	}
	arrival, err := parseTime(input.ArrivalTime)
	if err != nil {
		fields["arrival_time"] = "must be an RFC3339 timestamp"
	} else if !arrival.After(departure) {
		fields["arrival_time"] = "must be after departure_time"
	}

	if len(fields) > 0 {
		return nil, domain.Validation(fields)
	}

	active := true
	if input.Active != nil {
		active = *input.Active
	}

	return &domain.Flight{
		FlightNumber:  input.FlightNumber,
		Airline:       input.Airline,
		Origin:        input.Origin,
		Destination:   input.Destination,
		DepartureTime: departure,
		ArrivalTime:   arrival,
		PriceCents:    input.PriceCents,
		TotalSeats:    input.TotalSeats,
		CabinClass:    input.CabinClass,
		Active:        active,
	}, nil
}

func parseTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339, value)
}

var _ FlightUseCase = (*FlightService)(nil)
