// Command comorbid scores a cohort extract from the command line and writes
// the results as CSV.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"io"
	"log"
	"os"
	"strings"

	"github.com/comorbid-index-engine/internal/config"
	"github.com/comorbid-index-engine/internal/domain"
	"github.com/comorbid-index-engine/internal/engine"
	"github.com/comorbid-index-engine/internal/export"
	"github.com/comorbid-index-engine/internal/repository"
	"github.com/comorbid-index-engine/internal/reshape"
	"github.com/comorbid-index-engine/internal/ruleset"
	"github.com/comorbid-index-engine/pkg/registry"
)

func main() {
	var (
		inputPath    = flag.String("input", "", "cohort CSV (required)")
		prePath      = flag.String("pre", "", "pre-treatment cohort CSV")
		registryPath = flag.String("registry", "", "cancer registry extract CSV")
		outputPath   = flag.String("output", "", "output CSV path (default stdout)")
		indexFlag    = flag.String("index", "", "index variant: m3 or c3 (overrides config)")
		siteFlag     = flag.String("site", "", "cancer site for c3 (overrides config)")
		tablePath    = flag.String("ruleset", "", "custom rule table YAML")
		wide         = flag.Bool("wide", false, "input is wide (one row per encounter, diagnosis columns)")
		cohort       = flag.String("cohort", "", "fetch registry records for this cohort from the registry API")
		savePath     = flag.String("save", "", "also persist the run to this sqlite database")
	)
	flag.Parse()

	if *inputPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := configManager.GetConfig()
	if *indexFlag != "" {
		cfg.Run.Index = *indexFlag
	}
	if *siteFlag != "" {
		cfg.Run.Site = *siteFlag
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	logger := config.NewLogger(cfg.Logging)

	opts := engine.Options{
		Index:             domain.IndexVariant(cfg.Run.Index),
		Site:              domain.CancerSite(cfg.Run.Site),
		IncludeIndicators: cfg.Run.IncludeIndicators,
		IncludeScores:     cfg.Run.IncludeScores,
		Workers:           cfg.Run.Workers,
	}
	if *tablePath != "" {
		table, err := ruleset.LoadTable(*tablePath)
		if err != nil {
			logger.WithError(err).Fatal("Failed to load rule table")
		}
		opts.Table = &table
	}

	in := engine.Input{}
	in.Records = mustReadRecords(*inputPath, cfg, *wide)
	if *prePath != "" {
		in.PreTreatment = mustReadRecords(*prePath, cfg, *wide)
	}
	switch {
	case *registryPath != "":
		f, err := os.Open(*registryPath)
		if err != nil {
			logger.WithError(err).Fatal("Failed to open registry extract")
		}
		in.Registry, err = registry.ReadCSV(f, registry.FileOptions{
			KeyColumns:       cfg.Run.KeyColumns,
			SiteColumn:       "site",
			MetastaticColumn: "metastatic",
		})
		f.Close()
		if err != nil {
			logger.WithError(err).Fatal("Failed to read registry extract")
		}
	case *cohort != "":
		if !cfg.Registry.Enabled {
			logger.Fatal("Registry API is disabled in configuration")
		}
		client := registry.NewClient(registry.Config{
			BaseURL:   cfg.Registry.BaseURL,
			APIKey:    cfg.Registry.APIKey,
			Timeout:   cfg.Registry.Timeout,
			RateLimit: cfg.Registry.RateLimit,
		}, logger)
		var err error
		in.Registry, err = client.FetchRecords(context.Background(), *cohort)
		if err != nil {
			logger.WithError(err).Fatal("Failed to fetch registry records")
		}
	}

	pipeline, err := engine.New(opts, logger)
	if err != nil {
		logger.WithError(err).Fatal("Invalid run configuration")
	}

	result, err := pipeline.Run(context.Background(), in)
	if err != nil {
		logger.WithError(err).Fatal("Scoring run failed")
	}

	if *savePath != "" {
		store, err := repository.NewSQLiteStore(*savePath)
		if err != nil {
			logger.WithError(err).Fatal("Failed to open results database")
		}
		if err := store.SaveRun(context.Background(), result); err != nil {
			logger.WithError(err).Fatal("Failed to persist run")
		}
		store.Close()
	}

	out := io.Writer(os.Stdout)
	if *outputPath != "" {
		f, err := os.Create(*outputPath)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create output file")
		}
		defer f.Close()
		out = f
	}

	if err := export.WriteCSV(out, result, cfg.Run.KeyColumns); err != nil {
		logger.WithError(err).Fatal("Failed to write results")
	}

	logger.WithFields(map[string]interface{}{
		"run_id":    result.RunID,
		"patients":  len(result.Patients),
		"malformed": result.MalformedCodes,
	}).Info("Run complete")
}

// mustReadRecords loads a cohort CSV, reshaping wide extracts when asked.
func mustReadRecords(path string, cfg *config.Config, wide bool) []domain.CodeRecord {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		log.Fatalf("Failed to read header of %s: %v", path, err)
	}
	rows, err := reader.ReadAll()
	if err != nil {
		log.Fatalf("Failed to read %s: %v", path, err)
	}

	if wide {
		records, err := reshape.WideToLong(header, rows, reshape.Options{
			KeyColumns: cfg.Run.KeyColumns,
			CodePrefix: cfg.Run.CodeColumnPrefix,
		})
		if err != nil {
			log.Fatalf("Failed to reshape %s: %v", path, err)
		}
		return records
	}

	return readLong(path, header, rows, cfg)
}

// readLong reads an already-long extract: key columns plus one code column.
func readLong(path string, header []string, rows [][]string, cfg *config.Config) []domain.CodeRecord {
	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[strings.ToLower(strings.TrimSpace(name))] = i
	}

	keyIdx := make([]int, len(cfg.Run.KeyColumns))
	for i, name := range cfg.Run.KeyColumns {
		idx, ok := colIndex[strings.ToLower(name)]
		if !ok {
			log.Fatalf("Column %q not found in %s", name, path)
		}
		keyIdx[i] = idx
	}
	codeIdx, ok := colIndex[strings.ToLower(cfg.Run.CodeColumn)]
	if !ok {
		log.Fatalf("Column %q not found in %s", cfg.Run.CodeColumn, path)
	}

	records := make([]domain.CodeRecord, 0, len(rows))
	for _, row := range rows {
		fields := make([]string, len(keyIdx))
		for i, idx := range keyIdx {
			fields[i] = strings.TrimSpace(row[idx])
		}
		records = append(records, domain.CodeRecord{
			Patient: domain.NewPatientKey(fields...),
			Code:    strings.TrimSpace(row[codeIdx]),
		})
	}
	return records
}
