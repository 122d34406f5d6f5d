// Package pipeline drives the per-row ingestion of a product image feed:
// fetch every listed URL, transcode it, persist the product's artifact
// list, and finalize the batch status once the feed is exhausted.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"imagefeed/internal/models"
	"imagefeed/internal/transcoder"
)

type Fetcher interface {
	Fetch(ctx context.Context, url, dest string) error
}

type Transcoder interface {
	Transcode(src, dest string, quality int) error
}

// Ledger persists finalized product records.
type Ledger interface {
	SaveProduct(ctx context.Context, p *models.Product) error
}

// Tracker owns the batch status lifecycle.
type Tracker interface {
	CompleteBatch(ctx context.Context, id uuid.UUID) error
}

// RowSource yields feed rows lazily; io.EOF signals exhaustion.
type RowSource interface {
	Next() (models.Row, error)
}

type Pipeline struct {
	fetcher    Fetcher
	transcoder Transcoder
	ledger     Ledger
	tracker    Tracker
	outputDir  string
	quality    int
}

func New(f Fetcher, t Transcoder, l Ledger, tr Tracker, outputDir string, quality int) *Pipeline {
	if quality <= 0 || quality > 100 {
		quality = transcoder.DefaultQuality
	}
	return &Pipeline{
		fetcher:    f,
		transcoder: t,
		ledger:     l,
		tracker:    tr,
		outputDir:  outputDir,
		quality:    quality,
	}
}

// Run processes every row of the feed in order and then marks the batch
// completed. Rows and their URLs are handled strictly in sequence, so
// completion cannot be reported while any row is still in flight.
//
// Per-image and per-row failures are logged and contained: a failed URL
// contributes no artifact, a row whose every URL failed is not
// persisted at all, and a failed persist does not stop later rows.
// Completion fires regardless of how many images succeeded.
func (p *Pipeline) Run(ctx context.Context, rows RowSource, batchID uuid.UUID) error {
	const op = "pipeline.Run"

	for {
		row, err := rows.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			slog.Error("skipping unreadable row", "batch_id", batchID, "error", err)
			continue
		}
		p.processRow(ctx, row, batchID)
	}

	if err := p.tracker.CompleteBatch(ctx, batchID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	slog.Info("batch completed", "batch_id", batchID)
	return nil
}

func (p *Pipeline) processRow(ctx context.Context, row models.Row, batchID uuid.UUID) {
	name := models.SanitizeName(row.ProductName)

	var images []models.ImageArtifact
	for i, url := range row.ImageURLs {
		imageName := fmt.Sprintf("%s_image%d.jpg", name, i+1)
		originalPath := filepath.Join(p.outputDir, imageName)
		compressedPath := filepath.Join(p.outputDir, fmt.Sprintf("%s_image%d_compressed.jpg", name, i+1))

		if err := p.fetcher.Fetch(ctx, url, originalPath); err != nil {
			slog.Warn("fetch failed, skipping image", "batch_id", batchID, "product", name, "url", url, "error", err)
			continue
		}

		if err := p.transcoder.Transcode(originalPath, compressedPath, p.quality); err != nil {
			slog.Warn("transcode failed, skipping image", "batch_id", batchID, "product", name, "url", url, "error", err)
			continue
		}

		images = append(images, models.ImageArtifact{
			OriginalURL:    url,
			CompressedPath: compressedPath,
			ImageName:      imageName,
		})
	}

	// A product with no surviving images is dropped from the store.
	if len(images) == 0 {
		slog.Warn("no images processed, dropping product", "batch_id", batchID, "product", name)
		return
	}

	product := &models.Product{
		ID:      uuid.New(),
		BatchID: batchID,
		Name:    name,
		Images:  images,
	}
	if err := p.ledger.SaveProduct(ctx, product); err != nil {
		slog.Error("failed to persist product", "batch_id", batchID, "product", name, "error", err)
		return
	}
	slog.Info("product persisted", "batch_id", batchID, "product", name, "images", len(images))
}
