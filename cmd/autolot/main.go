package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"autolot/internal/config"
	"autolot/internal/http/handlers"
	applog "autolot/internal/log"
	"autolot/internal/notify"
	"autolot/internal/repos"
	"autolot/internal/services"
	"autolot/internal/storage/blob"
	"autolot/internal/storage/kv"
)

func openKV(ctx context.Context, cfg config.Config) (kv.Store, error) {
	switch cfg.KVBackend {
	case "sqlite":
		return kv.OpenSQLite(cfg.DBDSN, cfg.StoreTimeout)
	case "redis":
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required for the redis kv backend")
		}
		return kv.OpenRedis(ctx, cfg.RedisURL, cfg.StoreTimeout)
	}
	return nil, fmt.Errorf("unknown KV_BACKEND %q (want sqlite or redis)", cfg.KVBackend)
}

func openBlobs(ctx context.Context, cfg config.Config) (blob.Store, error) {
	switch cfg.BlobBackend {
	case "fs":
		return blob.NewFSStore(cfg.MediaDir, cfg.PublicBaseURL+"/media")
	case "s3":
		// uploads of up to MAX_ADMIN_UPLOAD_MB need more than the kv timeout
		return blob.OpenS3(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3PublicBaseURL, 6*cfg.StoreTimeout)
	}
	return nil, fmt.Errorf("unknown BLOB_BACKEND %q (want fs or s3)", cfg.BlobBackend)
}

func main() {
	cfg := config.Load()

	// Optional file logging
	var out io.Writer = os.Stdout
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			out = io.MultiWriter(os.Stdout, f)
			log.SetOutput(out)
		}
	}

	ctx := context.Background()
	store, err := openKV(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	blobs, err := openBlobs(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.NotifyWebhookURL != "" {
		notifier = notify.Multi{notify.LogNotifier{}, notify.NewWebhookNotifier(cfg.NotifyWebhookURL, cfg.StoreTimeout)}
	}

	if cfg.SeedDemo {
		n, err := services.SeedDemo(ctx, repos.NewListingRepo(store))
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("[seed] created %d demo listings", n)
	}

	deps := handlers.NewDeps(cfg, store, blobs, services.NewSharedSecretGate(cfg.AdminAccessCode), notifier)
	deps.AccessLog = out
	if deps.MediaDir != "" {
		log.Printf("[static] /media -> %s", deps.MediaDir)
	}
	app := handlers.NewApp(deps)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		applog.Info(nil, "server.shutdown", nil)
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
