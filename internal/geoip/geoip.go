// Package geoip resolves visitor IPs to countries for traffic beacons.
// Lookups degrade to "Unknown" when no database is available; geolocation
// is enrichment, never a hard dependency.
package geoip

import (
	"compress/gzip"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"github.com/oschwald/geoip2-golang"
	"go.uber.org/zap"

	"github.com/sitepilot/sitepilot/internal/logging"
)

var (
	reader *geoip2.Reader
	dbPath string
)

const downloadURL = "https://cdn.jsdelivr.net/npm/geolite2-country/GeoLite2-Country.mmdb.gz"

// Init opens the country database under dataDir, downloading it first when
// absent. A missing or broken database is a warning, not an error.
func Init(dataDir string) error {
	dbPath = filepath.Join(dataDir, "GeoLite2-Country.mmdb")

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		logging.L().Info("GeoIP database not found, attempting download", zap.String("path", dbPath))
		if err := downloadDatabase(dbPath); err != nil {
			logging.L().Warn("GeoIP download failed; lookups will return Unknown",
				zap.String("path", dbPath), zap.Error(err))
			return nil
		}
	}

	var err error
	reader, err = geoip2.Open(dbPath)
	if err != nil {
		logging.L().Warn("could not load GeoIP database; lookups will return Unknown", zap.Error(err))
		return nil
	}

	logging.L().Info("GeoIP database loaded", zap.String("path", dbPath))
	return nil
}

// Country returns the ISO country name for an IP, or "Unknown".
func Country(ipStr string) string {
	if reader == nil {
		return "Unknown"
	}

	ip := net.ParseIP(ipStr)
	if ip == nil {
		return "Unknown"
	}

	record, err := reader.Country(ip)
	if err != nil || record.Country.Names["en"] == "" {
		return "Unknown"
	}
	return record.Country.Names["en"]
}

// Close releases the database handle.
func Close() {
	if reader != nil {
		_ = reader.Close()
		reader = nil
	}
}

func downloadDatabase(path string) error {
	resp, err := http.Get(downloadURL)
	if err != nil {
		return fmt.Errorf("failed to fetch GeoIP database: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GeoIP download returned %d", resp.StatusCode)
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to decompress GeoIP database: %w", err)
	}
	defer func() { _ = gz.Close() }()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, gz); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write GeoIP database: %w", err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
