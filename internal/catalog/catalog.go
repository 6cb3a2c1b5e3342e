// Package catalog serves the hand-maintained regional event files (America
// by city, Sevilla) stored next to the scraped snapshots.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"canales-taurinos/internal/config"
	"canales-taurinos/internal/logging"
	"canales-taurinos/internal/scraper/extract"
	"canales-taurinos/internal/snapshot"
	"canales-taurinos/pkg/models"
)

// byCity maps a city name to its events
type byCity map[string][]models.RegionalEvent

// Catalog loads each file on first use and keeps it for the life of the
// process. A missing or malformed file reads as empty.
type Catalog struct {
	store  snapshot.Store
	keys   config.RegionalConfig
	loc    *time.Location
	logger logging.Logger

	mu      sync.Mutex
	america byCity
	sevilla []models.RegionalEvent
}

func New(store snapshot.Store, keys config.RegionalConfig, logger logging.Logger) *Catalog {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		loc = time.Local
	}
	return &Catalog{
		store:  store,
		keys:   keys,
		loc:    loc,
		logger: logger.WithField("component", "catalog"),
	}
}

// Reload drops both files so the next call reads them again
func (c *Catalog) Reload() {
	c.mu.Lock()
	c.america = nil
	c.sevilla = nil
	c.mu.Unlock()
}

func (c *Catalog) load(ctx context.Context, key string) json.RawMessage {
	raw, err := c.store.Load(ctx, key)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			c.logger.Warn("Regional data file not found", map[string]interface{}{"key": key})
		} else {
			c.logger.Error("Failed to read regional data file", map[string]interface{}{"key": key, "error": err.Error()})
		}
		return nil
	}
	return raw
}

func (c *Catalog) americaData(ctx context.Context) byCity {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.america != nil {
		return c.america
	}

	data := byCity{}
	if raw := c.load(ctx, c.keys.AmericaKey); raw != nil {
		if err := json.Unmarshal(raw, &data); err != nil {
			c.logger.Error("Malformed America events file", map[string]interface{}{"error": err.Error()})
			data = byCity{}
		}
	}
	c.america = data
	c.logger.Info("America events loaded", map[string]interface{}{"cities": len(data)})
	return data
}

func (c *Catalog) sevillaData(ctx context.Context) []models.RegionalEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sevilla != nil {
		return c.sevilla
	}

	events := []models.RegionalEvent{}
	if raw := c.load(ctx, c.keys.SevillaKey); raw != nil {
		parsed, err := decodeSevilla(raw)
		if err != nil {
			c.logger.Error("Malformed Sevilla events file", map[string]interface{}{"error": err.Error()})
		} else {
			events = parsed
		}
	}
	c.sevilla = events
	c.logger.Info("Sevilla events loaded", map[string]interface{}{"events": len(events)})
	return events
}

// decodeSevilla accepts a plain array or a city -> events object, which is
// flattened in city order
func decodeSevilla(raw json.RawMessage) ([]models.RegionalEvent, error) {
	var list []models.RegionalEvent
	if err := json.Unmarshal(raw, &list); err == nil {
		if list == nil {
			list = []models.RegionalEvent{}
		}
		return list, nil
	}

	var grouped byCity
	if err := json.Unmarshal(raw, &grouped); err != nil {
		return nil, err
	}
	out := []models.RegionalEvent{}
	for _, city := range grouped.cities() {
		for _, ev := range grouped[city] {
			if ev.City == "" {
				ev.City = city
			}
			out = append(out, ev)
		}
	}
	return out, nil
}

func (b byCity) cities() []string {
	names := make([]string, 0, len(b))
	for name := range b {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Cities lists the cities with America events, sorted
func (c *Catalog) Cities(ctx context.Context) []string {
	return c.americaData(ctx).cities()
}

// EventsForCity returns the events of the first city whose name contains
// query, ignoring case, along with the matched name.
func (c *Catalog) EventsForCity(ctx context.Context, query string) (string, []models.RegionalEvent, bool) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return "", nil, false
	}

	data := c.americaData(ctx)
	for _, city := range data.cities() {
		if strings.Contains(strings.ToLower(city), query) {
			events := data[city]
			if events == nil {
				events = []models.RegionalEvent{}
			}
			return city, events, true
		}
	}
	return "", nil, false
}

func (c *Catalog) SevillaEvents(ctx context.Context) []models.RegionalEvent {
	events := c.sevillaData(ctx)
	out := make([]models.RegionalEvent, len(events))
	copy(out, events)
	return out
}

// UpcomingSevilla keeps events dated today or later. Dates that do not parse
// ("Por confirmar") are kept.
func (c *Catalog) UpcomingSevilla(ctx context.Context, now time.Time) []models.RegionalEvent {
	now = now.In(c.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.loc)

	out := []models.RegionalEvent{}
	for _, ev := range c.sevillaData(ctx) {
		date, ok := extract.ParseSpanishDate(ev.Date, c.loc)
		if !ok || !date.Before(today) {
			out = append(out, ev)
		}
	}
	return out
}
