// Package dataset loads labeled evaluation items and the tag vocabulary from
// files on disk.
package dataset

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lueurxax/event-tagger/internal/core/domain"
	coreerrors "github.com/lueurxax/event-tagger/internal/core/errors"
)

// Evaluation set column names.
const (
	colID          = "ArrangementNummer"
	colTitle       = "ArrangementTitel"
	colOrganizer   = "arrangør"
	colTeaser      = "nc_Teaser"
	colDescription = "CleanText"
	colSubtype     = "ArrangementUndertype"
	colTagPrefix   = "Underkategori"

	extJSONL = ".jsonl"

	maxScannerBufferSize    = 1024
	scannerBufferMultiplier = 64
)

// LoadStats describes what a load kept and dropped.
type LoadStats struct {
	Rows    int
	Kept    int
	Dropped int
}

// FileProvider reads labeled items from a CSV or JSONL file. It implements
// ports.DatasetProvider.
type FileProvider struct {
	path   string
	logger *zerolog.Logger
}

// NewFileProvider creates a provider for path.
func NewFileProvider(path string, logger *zerolog.Logger) *FileProvider {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &FileProvider{path: path, logger: logger}
}

// Path returns the dataset file path.
func (p *FileProvider) Path() string {
	return p.path
}

// Load reads every usable item. Rows without a title or without any tag are
// dropped. A missing or unreadable file yields ErrDatasetUnavailable.
func (p *FileProvider) Load(ctx context.Context) ([]domain.LabeledItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", coreerrors.ErrDatasetUnavailable, err)
	}

	var (
		items []domain.LabeledItem
		stats LoadStats
	)

	if strings.EqualFold(filepath.Ext(p.path), extJSONL) {
		items, stats, err = parseJSONL(data)
	} else {
		items, stats, err = parseCSV(data)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", coreerrors.ErrDatasetUnavailable, p.path, err)
	}

	p.logger.Info().
		Str("path", p.path).
		Int("rows", stats.Rows).
		Int("kept", stats.Kept).
		Int("dropped", stats.Dropped).
		Msg("loaded evaluation dataset")

	return items, nil
}

// ParseCSV parses an evaluation set in CSV form.
func ParseCSV(data []byte) ([]domain.LabeledItem, LoadStats, error) {
	return parseCSV(data)
}

func parseCSV(data []byte) ([]domain.LabeledItem, LoadStats, error) {
	rows, err := readRows(data)
	if err != nil {
		return nil, LoadStats{}, err
	}

	stats := LoadStats{Rows: len(rows)}
	items := make([]domain.LabeledItem, 0, len(rows))

	for i, r := range rows {
		item := domain.LabeledItem{
			Item: domain.Item{
				ID:          r.get(colID),
				Title:       r.get(colTitle),
				Organizer:   r.get(colOrganizer),
				Teaser:      r.get(colTeaser),
				Description: r.get(colDescription),
				Subtype:     r.get(colSubtype),
			},
		}

		for priority := domain.PriorityPrimary; priority <= domain.MaxTags; priority++ {
			tag := NormalizeTag(r.get(colTagPrefix + strconv.Itoa(priority)))
			if tag == "" {
				continue
			}

			item.GroundTruth = append(item.GroundTruth, domain.GroundTruthTag{Tag: tag, Priority: priority})
		}

		if !keep(&item, i) {
			stats.Dropped++

			continue
		}

		items = append(items, item)
	}

	stats.Kept = len(items)

	return items, stats, nil
}

// jsonlRecord is one line of a JSONL evaluation set.
type jsonlRecord struct {
	domain.Item
	GroundTruth []string `json:"ground_truth_tags"`
}

func parseJSONL(data []byte) ([]domain.LabeledItem, LoadStats, error) {
	var (
		stats LoadStats
		items []domain.LabeledItem
	)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, scannerBufferMultiplier*maxScannerBufferSize), maxScannerBufferSize*maxScannerBufferSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		stats.Rows++

		var rec jsonlRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			stats.Dropped++

			continue
		}

		item := domain.LabeledItem{Item: rec.Item}
		item.Item.Title = strings.TrimSpace(item.Item.Title)

		for _, raw := range rec.GroundTruth {
			tag := NormalizeTag(raw)
			if tag == "" || len(item.GroundTruth) == domain.MaxTags {
				continue
			}

			item.GroundTruth = append(item.GroundTruth, domain.GroundTruthTag{
				Tag:      tag,
				Priority: len(item.GroundTruth) + 1,
			})
		}

		if !keep(&item, stats.Rows-1) {
			stats.Dropped++

			continue
		}

		items = append(items, item)
	}

	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("read jsonl: %w", err)
	}

	stats.Kept = len(items)

	return items, stats, nil
}

// keep reports whether a parsed item is usable and fills in a stable ID when
// the source has none.
func keep(item *domain.LabeledItem, index int) bool {
	if item.Item.Title == "" || len(item.GroundTruth) == 0 {
		return false
	}

	if item.Item.ID == "" {
		item.Item.ID = fallbackID(item.Item.Title, index)
	}

	return true
}

func fallbackID(title string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(strconv.Itoa(index)+":"+title)).String()
}
