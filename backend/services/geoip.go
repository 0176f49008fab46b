package services

import (
	"fmt"
	"net"
	"sync"

	"github.com/oschwald/geoip2-golang"

	"cwatch-dashboard/backend/models"
	"cwatch-dashboard/backend/system"
)

// maxGeoCache bounds the per-IP lookup cache. The cache is dropped wholesale
// when full; listed IPs repeat across polls so it refills quickly.
const maxGeoCache = 4096

// CountryLookup resolves an address to an ISO country code.
type CountryLookup interface {
	Country(ip net.IP) (*geoip2.Country, error)
	Close() error
}

// GeoIPService annotates dashboard IP records with their country using a
// MaxMind GeoLite2/GeoIP2 database.
type GeoIPService struct {
	db    CountryLookup
	mu    sync.RWMutex
	cache map[string]string
}

// OpenGeoIP opens the MaxMind database at path.
func OpenGeoIP(path string) (*GeoIPService, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open GeoIP database: %w", err)
	}
	system.Info("GeoIP database loaded: %s (%s)", path, reader.Metadata().DatabaseType)
	return NewGeoIPService(reader), nil
}

// NewGeoIPService wraps an already opened lookup.
func NewGeoIPService(db CountryLookup) *GeoIPService {
	return &GeoIPService{
		db:    db,
		cache: make(map[string]string),
	}
}

// CountryCode returns the ISO code for ipStr, or "" for private, invalid or
// unknown addresses.
func (g *GeoIPService) CountryCode(ipStr string) string {
	g.mu.RLock()
	code, ok := g.cache[ipStr]
	g.mu.RUnlock()
	if ok {
		return code
	}

	ip := net.ParseIP(ipStr)
	if ip != nil && !ip.IsPrivate() && !ip.IsLoopback() && !ip.IsUnspecified() {
		if rec, err := g.db.Country(ip); err == nil && rec != nil {
			code = rec.Country.IsoCode
		} else if err != nil {
			system.Debug("GeoIP lookup failed for %s: %v", ipStr, err)
		}
	}

	g.mu.Lock()
	if len(g.cache) >= maxGeoCache {
		g.cache = make(map[string]string)
	}
	g.cache[ipStr] = code
	g.mu.Unlock()
	return code
}

// Enrich fills Country on every record that lacks one.
func (g *GeoIPService) Enrich(records []models.IPRecord) {
	for i := range records {
		if records[i].Country == "" {
			records[i].Country = g.CountryCode(records[i].IP)
		}
	}
}

// Close releases the database.
func (g *GeoIPService) Close() error {
	return g.db.Close()
}
