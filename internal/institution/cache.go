package institution

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/arieldaniely/AutoPagi/internal/logging"
	"github.com/arieldaniely/AutoPagi/internal/scrapeerror"

	"github.com/gocarina/gocsv"
)

// cacheRow is the on-disk layout of one cached mapping entry.
type cacheRow struct {
	ContractNumber string `csv:"contract_number"`
	Institution    string `csv:"institution"`
}

// SaveCache writes the mapping to a local CSV cache, sorted by contract
// number so successive saves of the same mapping produce identical files.
func SaveCache(path string, mapping map[string]string, log logging.Logger) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("error creating cache directory: %w", err)
	}

	rows := make([]cacheRow, 0, len(mapping))
	for contract, name := range mapping {
		rows = append(rows, cacheRow{ContractNumber: contract, Institution: name})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ContractNumber < rows[j].ContractNumber })

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating cache file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.WithError(err).Warn("failed to close cache file")
		}
	}()

	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return fmt.Errorf("error writing cache file: %w", err)
	}

	log.Info("saved institution map cache",
		logging.F(logging.FieldFile, path),
		logging.F(logging.FieldCount, len(rows)))
	return nil
}

// LoadCache reads the local CSV cache back into a mapping.
func LoadCache(path string, log logging.Logger) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening cache file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.WithError(err).Warn("failed to close cache file")
		}
	}()

	var rows []cacheRow
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, fmt.Errorf("error parsing cache file: %w", err)
	}

	mapping := make(map[string]string, len(rows))
	for _, row := range rows {
		if row.ContractNumber == "" {
			continue
		}
		mapping[row.ContractNumber] = row.Institution
	}

	log.Info("loaded institution map cache",
		logging.F(logging.FieldFile, path),
		logging.F(logging.FieldCount, len(mapping)))
	return mapping, nil
}

// CachedProvider wraps a primary provider with the local CSV cache: a
// successful fetch refreshes the cache, a failed fetch falls back to it.
type CachedProvider struct {
	Primary   Provider
	CacheFile string
	log       logging.Logger
}

// NewCachedProvider wraps primary with cache persistence at cacheFile.
func NewCachedProvider(primary Provider, cacheFile string, log logging.Logger) *CachedProvider {
	return &CachedProvider{Primary: primary, CacheFile: cacheFile, log: log}
}

// Fetch tries the primary provider first, refreshing the cache on success.
// On failure it serves the cache if present, otherwise the collaborator is
// unavailable and the error says why. An empty primary result counts as a
// failure: empty never means "there are no institutions".
func (p *CachedProvider) Fetch(ctx context.Context) (map[string]string, error) {
	mapping, err := p.Primary.Fetch(ctx)
	if err == nil && len(mapping) > 0 {
		if p.CacheFile != "" {
			if cacheErr := SaveCache(p.CacheFile, mapping, p.log); cacheErr != nil {
				p.log.WithError(cacheErr).Warn("failed to refresh institution map cache")
			}
		}
		return mapping, nil
	}

	if p.CacheFile != "" {
		if cached, cacheErr := LoadCache(p.CacheFile, p.log); cacheErr == nil && len(cached) > 0 {
			p.log.WithError(err).Warn("institution map fetch failed, serving cached mapping")
			return cached, nil
		}
	}
	if err == nil {
		err = &scrapeerror.CollaboratorError{
			Collaborator: "institution map",
			Err:          errors.New("provider returned an empty mapping"),
		}
	}
	return nil, err
}
