package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"gymops/internal/cli"
	applog "gymops/internal/log"
	"gymops/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(applog.ComponentImporter)
	cfg := cli.LoadAndValidateConfig(logger)

	filePath := flag.String("file", cfg.ImportCSVPath, "path to the transaction export CSV")
	flag.Parse()
	if *filePath == "" {
		logger.Error("No export file given, use -file or IMPORT_CSV_PATH")
		os.Exit(2)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	publisher, closePublisher := cli.InitOptionalPublisher(logger, cfg)
	defer closePublisher()

	svc := services.NewImportService(repo, publisher)

	stats, err := svc.ImportFile(context.Background(), *filePath)
	if err != nil {
		logger.Error("Import failed", "file", *filePath, "error", err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(stats, "", "  ")
	os.Stdout.Write(append(out, '\n'))
}
