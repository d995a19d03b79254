package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	archives3 "github.com/outletmesh/outletmesh/internal/archive/s3"
	"github.com/outletmesh/outletmesh/internal/config"
	"github.com/outletmesh/outletmesh/internal/export"
	outletsqldb "github.com/outletmesh/outletmesh/internal/outlets/sqldb"
	"github.com/outletmesh/outletmesh/internal/store"
)

func main() {
	outputPath := flag.String("out", "outlets.parquet", "local output file path")
	objectKey := flag.String("key", "", "object store key; when set the file is uploaded instead of written locally")
	flag.Parse()

	if err := run(*outputPath, *objectKey); err != nil {
		fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
		os.Exit(1)
	}
}

func run(outputPath, objectKey string) error {
	cfg, err := config.LoadFromEnv("outletmesh-export")
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if cfg.DB.DSN == "" {
		return fmt.Errorf("OUTLETMESH_DB_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := store.Open(ctx, store.Config{
		Driver: cfg.DB.Driver,
		DSN:    cfg.DB.DSN,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	items, err := outletsqldb.NewRepository(db).ListOutlets(ctx)
	if err != nil {
		return fmt.Errorf("list outlets: %w", err)
	}

	result, err := export.EncodeOutletsToParquet(items)
	if err != nil {
		return err
	}

	if objectKey != "" {
		objectStore, err := archives3.New(ctx, archives3.Config{
			Endpoint:         cfg.Archive.Endpoint,
			Region:           cfg.Archive.Region,
			Bucket:           cfg.Archive.Bucket,
			AccessKeyID:      cfg.Archive.AccessKeyID,
			SecretAccessKey:  cfg.Archive.SecretAccessKey,
			UseSSL:           cfg.Archive.UseSSL,
			Prefix:           cfg.Archive.Prefix,
			AutoCreateBucket: cfg.Archive.AutoCreateBucket,
		})
		if err != nil {
			return fmt.Errorf("initialize object store: %w", err)
		}
		reader := bytes.NewReader(result.Data)
		if err := objectStore.Put(ctx, objectKey, reader, int64(len(result.Data)), "application/octet-stream"); err != nil {
			return fmt.Errorf("upload export: %w", err)
		}
		fmt.Printf("uploaded %d outlet(s) to %s\n", result.RecordCount, objectKey)
		return nil
	}

	if err := os.WriteFile(outputPath, result.Data, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	fmt.Printf("wrote %d outlet(s) to %s\n", result.RecordCount, outputPath)
	return nil
}
