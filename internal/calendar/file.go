package calendar

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// FileProvider reads a dataset kept on disk, e.g. a hand-maintained export of
// the API response. The same file serves every country and year; records are
// cut to the requested range when the calendar is built.
type FileProvider struct {
	filePath string
	logger   *zap.Logger
}

// NewFileProvider creates a FileProvider
func NewFileProvider(filePath string, logger *zap.Logger) *FileProvider {
	return &FileProvider{
		filePath: filePath,
		logger:   logger,
	}
}

// Fetch loads the dataset file
func (fp *FileProvider) Fetch(_ context.Context, country string, _ []int) ([]byte, error) {
	data, err := os.ReadFile(fp.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset file: %w", err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil, fmt.Errorf("%w: %s is not a JSON array", ErrNoData, fp.filePath)
	}

	fp.logger.Info("Dataset file loaded",
		zap.String("file", fp.filePath),
		zap.String("country", country),
		zap.Int("records", countRecords(data)))

	return data, nil
}
