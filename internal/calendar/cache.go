package calendar

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// ErrCacheMiss is returned when the cache holds no dataset for the request
var ErrCacheMiss = errors.New("dataset cache miss")

// CachedDataset is the on-disk cache record
type CachedDataset struct {
	Country   string    `msgpack:"country"`
	Years     []int     `msgpack:"years"`
	FetchedAt time.Time `msgpack:"fetched_at"`
	Data      []byte    `msgpack:"data"`
}

// FileCache persists the last successfully fetched dataset so that later runs
// work offline and do not hit the API on every start
type FileCache struct {
	filePath string
	logger   *zap.Logger
}

// NewFileCache creates a FileCache. An empty path disables caching.
func NewFileCache(filePath string, logger *zap.Logger) *FileCache {
	return &FileCache{
		filePath: filePath,
		logger:   logger,
	}
}

// Load returns the cached dataset for country and years
func (fc *FileCache) Load(country string, years []int) (*CachedDataset, error) {
	if fc.filePath == "" {
		return nil, ErrCacheMiss
	}

	data, err := os.ReadFile(fc.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	var cached CachedDataset
	if err := msgpack.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("failed to parse cache file: %w", err)
	}

	if !strings.EqualFold(cached.Country, country) || !slices.Equal(cached.Years, years) {
		fc.logger.Debug("Cached dataset does not match request",
			zap.String("cached_country", cached.Country),
			zap.Ints("cached_years", cached.Years))
		return nil, ErrCacheMiss
	}

	return &cached, nil
}

// Save stores the dataset, replacing the previous one
func (fc *FileCache) Save(country string, years []int, raw []byte) error {
	if fc.filePath == "" {
		return nil
	}

	data, err := msgpack.Marshal(&CachedDataset{
		Country:   strings.ToUpper(country),
		Years:     years,
		FetchedAt: time.Now().UTC(),
		Data:      raw,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	if dir := filepath.Dir(fc.filePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	tmp := fc.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp, fc.filePath); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}

	fc.logger.Info("Dataset cached",
		zap.String("file", fc.filePath),
		zap.String("country", country),
		zap.Ints("years", years))

	return nil
}
