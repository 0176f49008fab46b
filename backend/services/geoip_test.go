package services

import (
	"fmt"
	"net"
	"testing"

	"github.com/oschwald/geoip2-golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cwatch-dashboard/backend/models"
)

type fakeCountryDB struct {
	codes   map[string]string
	lookups int
	closed  bool
}

func (f *fakeCountryDB) Country(ip net.IP) (*geoip2.Country, error) {
	f.lookups++
	code, ok := f.codes[ip.String()]
	if !ok {
		return nil, fmt.Errorf("address %s not found", ip)
	}
	rec := &geoip2.Country{}
	rec.Country.IsoCode = code
	return rec, nil
}

func (f *fakeCountryDB) Close() error {
	f.closed = true
	return nil
}

func TestGeoIPService_CountryCode(t *testing.T) {
	db := &fakeCountryDB{codes: map[string]string{"203.0.113.5": "DE", "2001:db8::1": "JP"}}
	geo := NewGeoIPService(db)

	assert.Equal(t, "DE", geo.CountryCode("203.0.113.5"))
	assert.Equal(t, "JP", geo.CountryCode("2001:db8::1"))
	assert.Equal(t, "", geo.CountryCode("198.51.100.1"), "unknown address")
	assert.Equal(t, 3, db.lookups)

	// Cached
	assert.Equal(t, "DE", geo.CountryCode("203.0.113.5"))
	assert.Equal(t, 3, db.lookups)
}

func TestGeoIPService_SkipsLocalAddresses(t *testing.T) {
	db := &fakeCountryDB{codes: map[string]string{}}
	geo := NewGeoIPService(db)

	for _, ip := range []string{"10.1.2.3", "192.168.0.10", "127.0.0.1", "::1", "0.0.0.0", "not-an-ip"} {
		assert.Equal(t, "", geo.CountryCode(ip), ip)
	}
	assert.Zero(t, db.lookups)
}

func TestGeoIPService_Enrich(t *testing.T) {
	db := &fakeCountryDB{codes: map[string]string{"203.0.113.5": "DE", "203.0.113.6": "FR"}}
	geo := NewGeoIPService(db)

	records := []models.IPRecord{
		{IP: "203.0.113.5"},
		{IP: "203.0.113.6", Country: "US"},
		{IP: "10.0.0.1"},
	}
	geo.Enrich(records)

	assert.Equal(t, "DE", records[0].Country)
	assert.Equal(t, "US", records[1].Country, "existing country is kept")
	assert.Equal(t, "", records[2].Country)

	require.NoError(t, geo.Close())
	assert.True(t, db.closed)
}

func TestOpenGeoIP_MissingFile(t *testing.T) {
	_, err := OpenGeoIP(t.TempDir() + "/missing.mmdb")
	assert.Error(t, err)
}
