// Command cluster runs one offline clustering pass over an incident source
// and prints a JSON report per cluster. It is meant for tuning the epsilon
// and min-samples settings before deploying them to the service.
//
// Usage:
//
//	go run ./cmd/cluster -path crime_data.csv -eps-km 5 -min-samples 3
//	go run ./cmd/cluster -source sqlite -path incidents.db -out report.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/incident-risk-service/internal/adapter/csvfile"
	"github.com/couchcryptid/incident-risk-service/internal/adapter/sqlite"
	"github.com/couchcryptid/incident-risk-service/internal/cluster"
	"github.com/couchcryptid/incident-risk-service/internal/config"
	"github.com/couchcryptid/incident-risk-service/internal/domain"
	"github.com/couchcryptid/incident-risk-service/internal/observability"
	"github.com/couchcryptid/incident-risk-service/internal/pipeline"
	"github.com/couchcryptid/incident-risk-service/internal/risk"
	"github.com/couchcryptid/incident-risk-service/internal/spatial"
)

type report struct {
	Source     string                `json:"source"`
	EpsilonKM  float64               `json:"epsilon_km"`
	EpsilonRad float64               `json:"epsilon_rad"`
	MinSamples int                   `json:"min_samples"`
	Index      string                `json:"index"`
	Incidents  int                   `json:"incidents"`
	Clustered  int                   `json:"clustered"`
	Noise      int                   `json:"noise"`
	Elapsed    string                `json:"elapsed"`
	Clusters   []risk.ClusterSummary `json:"clusters"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("cluster", flag.ContinueOnError)
	fs.SetOutput(stderr)
	kind := fs.String("source", config.SourceCSV, "incident source kind: csv or sqlite")
	path := fs.String("path", "crime_data.csv", "path to the incident CSV file or SQLite database")
	eps := fs.Float64("eps-km", 5, "neighbourhood radius in kilometres")
	minSamples := fs.Int("min-samples", 3, "neighbours (self included) required for a core incident")
	index := fs.String("index", string(spatial.StrategyVPTree), "spatial index: vptree or linear")
	out := fs.String("out", "", "write the report to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	strategy, err := spatial.ParseStrategy(*index)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	clusterer, err := cluster.NewClusterer(cluster.Params{EpsilonKM: *eps, MinSamples: *minSamples}, strategy)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	var source pipeline.Extractor
	switch *kind {
	case config.SourceCSV:
		source = csvfile.NewSource(*path)
	case config.SourceSQLite:
		source = sqlite.NewSource(*path)
	default:
		fmt.Fprintf(stderr, "unknown source %q\n", *kind)
		return 2
	}

	engine := risk.NewEngine()
	builder := pipeline.New(source, clusterer, strategy, engine, logger, observability.NewMetricsForTesting())

	start := time.Now()
	idx, err := builder.Build(context.Background())
	if err != nil {
		fmt.Fprintf(stderr, "clustering failed: %v\n", err)
		return 1
	}

	rep := report{
		Source:     *path,
		EpsilonKM:  *eps,
		EpsilonRad: domain.KMToRadians(*eps),
		MinSamples: *minSamples,
		Index:      string(strategy),
		Incidents:  idx.Incidents(),
		Clustered:  idx.Clustered(),
		Noise:      idx.Noise(),
		Elapsed:    time.Since(start).Round(time.Millisecond).String(),
		Clusters:   idx.Clusters(),
	}

	w := stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			fmt.Fprintf(stderr, "create report: %v\n", err)
			return 1
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		fmt.Fprintf(stderr, "write report: %v\n", err)
		return 1
	}
	return 0
}
