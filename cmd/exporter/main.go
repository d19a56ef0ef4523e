// Command exporter synchronises ArticleMeta documents to the DOAJ index.
package main

import (
	"errors"
	"os"

	"github.com/scieloorg/doaj-exporter/internal/adapters/driven/articlemeta"
	doajclient "github.com/scieloorg/doaj-exporter/internal/adapters/driven/doaj"
	"github.com/scieloorg/doaj-exporter/internal/adapters/driven/report"
	"github.com/scieloorg/doaj-exporter/internal/adapters/driven/storage/sqlite"
	"github.com/scieloorg/doaj-exporter/internal/adapters/driving/cli"
	"github.com/scieloorg/doaj-exporter/internal/core/domain"
	"github.com/scieloorg/doaj-exporter/internal/core/services"
	"github.com/scieloorg/doaj-exporter/internal/logger"
	doajmapper "github.com/scieloorg/doaj-exporter/internal/mappers/doaj"
)

func main() {
	cli.SetEnvironmentBuilder(buildEnvironment)

	if err := cli.Execute(); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

// buildEnvironment wires the full pipeline for one invocation: source
// client, destination client, mapping store, result writer and the core
// services around them.
func buildEnvironment(settings domain.Settings, issns domain.ISSNSet, outputPath string) (*cli.RunEnvironment, error) {
	store, err := sqlite.NewStore(settings.StatePath)
	if err != nil {
		return nil, err
	}

	source, err := articlemeta.New(settings)
	if err != nil {
		store.Close()
		return nil, err
	}

	destination, err := doajclient.NewClient(settings)
	if err != nil {
		source.Close()
		store.Close()
		return nil, err
	}

	writer, err := report.Open(outputPath)
	if err != nil {
		source.Close()
		store.Close()
		return nil, err
	}

	mappings := store.MappingStore()
	mapper := doajmapper.New()

	orchestrator := services.NewExportOrchestrator(
		services.NewSelector(source, mappings),
		services.NewDecisionEngine(issns, mappings, mapper),
		services.NewDispatcher(destination, mappings, settings),
		source,
		writer,
		settings,
	)

	cleanup := func() error {
		return errors.Join(writer.Close(), source.Close(), store.Close())
	}
	return &cli.RunEnvironment{Exporter: orchestrator, Cleanup: cleanup}, nil
}
