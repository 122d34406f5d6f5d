package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"imagefeed/internal/feed"
	"imagefeed/internal/fetcher"
	"imagefeed/internal/models"
	"imagefeed/internal/pipeline"
	"imagefeed/internal/server"
	"imagefeed/internal/storage"
	"imagefeed/internal/transcoder"
)

func main() {
	cfg, err := models.LoadConfig("config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := storage.NewStorage(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to init storage", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := os.MkdirAll(cfg.StoragePath, 0755); err != nil {
		slog.Error("failed to create storage dir", "path", cfg.StoragePath, "error", err)
		os.Exit(1)
	}

	// Kafka producer
	producer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: []string{cfg.KafkaBroker},
		Topic:   cfg.KafkaTopic,
	})

	pipe := pipeline.New(
		fetcher.New(cfg.FetchTimeout()),
		transcoder.New(),
		db,
		db,
		cfg.StoragePath,
		cfg.ImageQuality,
	)

	// Start the batch consumer in background
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		consumer := kafka.NewReader(kafka.ReaderConfig{
			Brokers: []string{cfg.KafkaBroker},
			Topic:   cfg.KafkaTopic,
			GroupID: "feed-ingest-group",
		})
		defer consumer.Close()

		for {
			msg, err := consumer.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				slog.Error("error reading message", "error", err)
				continue
			}
			if err := runBatch(ctx, pipe, cfg.InputFile, string(msg.Value)); err != nil {
				slog.Error("error processing batch", "batch_id", string(msg.Value), "error", err)
			}
		}
	}()

	srv := server.NewServer(cfg, db, producer)

	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	cancel()
	srv.Stop()
	producer.Close()
}

func runBatch(ctx context.Context, pipe *pipeline.Pipeline, inputFile, rawID string) error {
	batchID, err := uuid.Parse(rawID)
	if err != nil {
		return err
	}

	f, err := os.Open(inputFile)
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := feed.NewReader(f)
	if err != nil {
		return err
	}

	return pipe.Run(ctx, rows, batchID)
}
