package poll

import (
	"fmt"
	"os"
	"path/filepath"
	"roverchat/internal/models"
	"roverchat/internal/poll/interfaces"
	"roverchat/internal/providers"
	"roverchat/internal/structures"
	"sync"

	json "github.com/goccy/go-json"
)

// Archive keeps the most recent closed poll results, persisted as
// zstd-compressed JSON. An empty path keeps history in memory only.
type Archive struct {
	path       string
	limit      int
	compressor interfaces.CompressorInterface
	logger     providers.Logger

	mu      sync.Mutex
	results []models.PollResult
}

func NewArchive(conf *structures.Config, compressor interfaces.CompressorInterface, logger providers.Logger) *Archive {
	return &Archive{
		path:       conf.Poll.ArchivePath,
		limit:      conf.Poll.HistorySize,
		compressor: compressor,
		logger:     logger,
	}
}

// ProvideArchive builds the archive and loads the persisted history. A
// damaged file is logged and the server starts with an empty history.
func ProvideArchive(conf *structures.Config, compressor interfaces.CompressorInterface, logger providers.Logger) *Archive {
	a := NewArchive(conf, compressor, logger)
	if err := a.Load(); err != nil {
		logger.Errorf(providers.TypePoll, "Restore poll history: %s", err)
	}
	return a
}

// Load reads the archive file. A missing file is an empty history.
func (a *Archive) Load() error {
	if a.path == "" {
		return nil
	}
	data, err := os.ReadFile(a.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	raw, err := a.compressor.Decompress(data)
	if err != nil {
		return fmt.Errorf("poll archive %s: %w", a.path, err)
	}
	var results []models.PollResult
	if err := json.Unmarshal(raw, &results); err != nil {
		return fmt.Errorf("poll archive %s: %w", a.path, err)
	}

	a.mu.Lock()
	a.results = a.trim(results)
	a.mu.Unlock()
	a.logger.Infof(providers.TypePoll, "Restored %d poll results from %s", len(results), a.path)
	return nil
}

// Append records result and rewrites the archive file.
func (a *Archive) Append(result models.PollResult) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = a.trim(append(a.results, result))
	return a.saveLocked()
}

// Results returns the history, oldest first.
func (a *Archive) Results() []models.PollResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.PollResult, len(a.results))
	copy(out, a.results)
	return out
}

// Latest returns the most recent result.
func (a *Archive) Latest() (models.PollResult, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.results) == 0 {
		return models.PollResult{}, false
	}
	return a.results[len(a.results)-1], true
}

func (a *Archive) trim(results []models.PollResult) []models.PollResult {
	if a.limit > 0 && len(results) > a.limit {
		return append([]models.PollResult(nil), results[len(results)-a.limit:]...)
	}
	return results
}

func (a *Archive) saveLocked() error {
	if a.path == "" {
		return nil
	}

	jsonData, err := json.Marshal(a.results)
	if err != nil {
		return err
	}
	data, err := a.compressor.Compress(jsonData)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(a.path), 0755); err != nil {
		return err
	}

	tmpFile := a.path + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	if _, err = file.Write(data); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return os.Rename(tmpFile, a.path)
}
