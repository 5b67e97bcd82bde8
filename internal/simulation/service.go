package simulation

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/yegors/fdwatch/internal/adsb"
	"github.com/yegors/fdwatch/internal/geo"
	"github.com/yegors/fdwatch/pkg/logger"
)

const (
	MaxSimulatedAircraft = 10 // Hardcoded maximum number of simulated aircraft
)

// SimulatedAircraft represents a single simulated aircraft with its current state
type SimulatedAircraft struct {
	Hex                string        `json:"hex"`
	Flight             string        `json:"flight"`
	Category           adsb.Category `json:"category"`
	CurrentLat         float64       `json:"current_lat"`
	CurrentLon         float64       `json:"current_lon"`
	CurrentAltitude    float64       `json:"current_altitude"`
	TargetHeading      float64       `json:"target_heading"`
	TargetSpeed        float64       `json:"target_speed"`         // Knots
	TargetVerticalRate float64       `json:"target_vertical_rate"` // Feet per minute
	LastUpdate         time.Time     `json:"last_update"`
	CreatedAt          time.Time     `json:"created_at"`
}

// Approach describes the scripted arrival flown by each spawned aircraft
type Approach struct {
	Distance     float64       // Statute miles from the deck at spawn
	Offset       float64       // Lateral miles from the extended centerline, positive to the right
	Altitude     float64       // Feet at spawn
	Speed        float64       // Knots
	VerticalRate float64       // Feet per minute, negative descends
	Every        time.Duration // Minimum time between spawns
}

// DefaultApproach is a typical airliner on a five mile final
var DefaultApproach = Approach{
	Distance:     5,
	Offset:       0.1,
	Altitude:     1600,
	Speed:        140,
	VerticalRate: -700,
	Every:        3 * time.Minute,
}

// Service flies scripted approaches past the deck. It implements adsb.Source, so the
// engine consumes it exactly like a receiver feed.
type Service struct {
	aircraft  map[string]*SimulatedAircraft
	mutex     sync.RWMutex
	deckLat   float64
	deckLon   float64
	heading   float64 // Landing heading, degrees true
	approach  Approach
	lastSpawn time.Time
	now       func() time.Time
	logger    *logger.Logger
}

// NewService creates a simulation flying the landing heading over the deck
func NewService(deckLat, deckLon, landingHeading float64, approach Approach, log *logger.Logger) *Service {
	return &Service{
		aircraft: make(map[string]*SimulatedAircraft),
		deckLat:  deckLat,
		deckLon:  deckLon,
		heading:  geo.NormalizeHeading(landingHeading),
		approach: approach,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   log.Named("simulation"),
	}
}

// SetClock replaces the time source
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// CreateAircraft creates a new simulated aircraft
func (s *Service) CreateAircraft(lat, lon, altitude, heading, speed, verticalRate float64) (*SimulatedAircraft, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.createLocked(lat, lon, altitude, heading, speed, verticalRate)
}

func (s *Service) createLocked(lat, lon, altitude, heading, speed, verticalRate float64) (*SimulatedAircraft, error) {
	if len(s.aircraft) >= MaxSimulatedAircraft {
		return nil, fmt.Errorf("maximum number of simulated aircraft (%d) reached", MaxSimulatedAircraft)
	}
	if !geo.ValidCoordinates(lat, lon) {
		return nil, fmt.Errorf("invalid coordinates %.6f,%.6f", lat, lon)
	}

	now := s.now()
	aircraft := &SimulatedAircraft{
		Hex:                s.generateUniqueHex(),
		Flight:             generateFlightNumber(),
		Category:           adsb.CategoryLarge,
		CurrentLat:         lat,
		CurrentLon:         lon,
		CurrentAltitude:    altitude,
		TargetHeading:      geo.NormalizeHeading(heading),
		TargetSpeed:        speed,
		TargetVerticalRate: verticalRate,
		LastUpdate:         now,
		CreatedAt:          now,
	}

	s.aircraft[aircraft.Hex] = aircraft
	s.logger.Info("Created simulated aircraft",
		logger.String("hex", aircraft.Hex),
		logger.String("flight", aircraft.Flight),
		logger.Float64("lat", lat),
		logger.Float64("lon", lon))

	return aircraft, nil
}

// SpawnApproach places an aircraft on the scripted approach, flying the landing heading
// toward the deck
func (s *Service) SpawnApproach() (*SimulatedAircraft, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.spawnLocked()
}

func (s *Service) spawnLocked() (*SimulatedAircraft, error) {
	a := s.approach
	lat, lon := geo.Project(s.deckLat, s.deckLon, s.heading+180, a.Distance)
	if a.Offset != 0 {
		lat, lon = geo.Project(lat, lon, s.heading+90, a.Offset)
	}
	aircraft, err := s.createLocked(lat, lon, a.Altitude, s.heading, a.Speed, a.VerticalRate)
	if err != nil {
		return nil, err
	}
	s.lastSpawn = aircraft.CreatedAt
	return aircraft, nil
}

// UpdateControls updates the control parameters for a simulated aircraft
func (s *Service) UpdateControls(hex string, heading, speed, verticalRate float64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	aircraft, exists := s.aircraft[hex]
	if !exists {
		return fmt.Errorf("simulated aircraft with hex %s not found", hex)
	}

	aircraft.TargetHeading = geo.NormalizeHeading(heading)
	aircraft.TargetSpeed = speed
	aircraft.TargetVerticalRate = verticalRate
	return nil
}

// RemoveAircraft removes a simulated aircraft
func (s *Service) RemoveAircraft(hex string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.aircraft[hex]; !exists {
		return fmt.Errorf("simulated aircraft with hex %s not found", hex)
	}

	delete(s.aircraft, hex)
	s.logger.Info("Removed simulated aircraft", logger.String("hex", hex))
	return nil
}

// GetAllAircraft returns all simulated aircraft sorted by hex
func (s *Service) GetAllAircraft() []SimulatedAircraft {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := make([]SimulatedAircraft, 0, len(s.aircraft))
	for _, aircraft := range s.aircraft {
		result = append(result, *aircraft)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Hex < result[j].Hex })
	return result
}

// Fetch advances the simulation to now, retires aircraft that have flown out past the
// deck, spawns the next arrival when due and returns the snapshots.
func (s *Service) Fetch(ctx context.Context) ([]adsb.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	s.updatePositionsLocked(now)
	s.retireLocked()

	if len(s.aircraft) == 0 && (s.lastSpawn.IsZero() || now.Sub(s.lastSpawn) >= s.approach.Every) {
		if _, err := s.spawnLocked(); err != nil {
			s.logger.Warn("Failed to spawn simulated aircraft", logger.Error(err))
		}
	}

	return s.snapshotsLocked(), nil
}

// UpdatePositions updates the positions of all simulated aircraft based on their control parameters
func (s *Service) UpdatePositions() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.updatePositionsLocked(s.now())
}

func (s *Service) updatePositionsLocked(now time.Time) {
	for _, aircraft := range s.aircraft {
		deltaTime := now.Sub(aircraft.LastUpdate).Seconds()
		if deltaTime > 0 {
			updateAircraftPosition(aircraft, deltaTime)
			aircraft.LastUpdate = now
		}
	}
}

// retireLocked drops aircraft that are beyond the spawn distance and flying away
func (s *Service) retireLocked() {
	for hex, aircraft := range s.aircraft {
		d, ok := geo.Distance(s.deckLat, s.deckLon, aircraft.CurrentLat, aircraft.CurrentLon)
		if !ok || d <= s.approach.Distance {
			continue
		}
		toDeck := geo.Bearing(aircraft.CurrentLat, aircraft.CurrentLon, s.deckLat, s.deckLon)
		if geo.HeadingDifference(toDeck, aircraft.TargetHeading) > 90 {
			delete(s.aircraft, hex)
			s.logger.Debug("Retired simulated aircraft", logger.String("hex", hex))
		}
	}
}

func (s *Service) snapshotsLocked() []adsb.Snapshot {
	out := make([]adsb.Snapshot, 0, len(s.aircraft))
	for _, aircraft := range s.aircraft {
		callsign := aircraft.Flight
		track := aircraft.TargetHeading
		altitude := aircraft.CurrentAltitude
		speed := aircraft.TargetSpeed
		lat := aircraft.CurrentLat
		lon := aircraft.CurrentLon
		out = append(out, adsb.Snapshot{
			ID:       aircraft.Hex,
			Callsign: &callsign,
			Category: aircraft.Category,
			Track:    &track,
			Altitude: &altitude,
			Speed:    &speed, // Simplified: assume no wind
			Lat:      &lat,
			Lon:      &lon,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// updateAircraftPosition advances one aircraft by dead reckoning
func updateAircraftPosition(aircraft *SimulatedAircraft, deltaTime float64) {
	// Knots to statute miles flown in deltaTime seconds
	distance := aircraft.TargetSpeed * geo.KnotsToMPH * deltaTime / 3600
	aircraft.CurrentLat, aircraft.CurrentLon = geo.Project(
		aircraft.CurrentLat, aircraft.CurrentLon, aircraft.TargetHeading, distance)

	// Vertical rate is in feet per minute
	aircraft.CurrentAltitude += aircraft.TargetVerticalRate * deltaTime / 60

	if aircraft.CurrentAltitude < 0 {
		aircraft.CurrentAltitude = 0
		aircraft.TargetVerticalRate = 0
	}
}

// generateUniqueHex generates a unique lowercase 6-character hex code
func (s *Service) generateUniqueHex() string {
	for {
		hex := fmt.Sprintf("%06x", rand.IntN(0xFFFFFF))
		if _, exists := s.aircraft[hex]; !exists {
			return hex
		}
	}
}

// generateFlightNumber generates a flight number in format SIM001-SIM999
func generateFlightNumber() string {
	return fmt.Sprintf("SIM%03d", rand.IntN(999)+1)
}

// IsSimulated checks if a hex code belongs to a simulated aircraft
func (s *Service) IsSimulated(hex string) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	_, exists := s.aircraft[hex]
	return exists
}
