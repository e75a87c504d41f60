package main

import (
	"flag"
	"fmt"
	"os"
	"reflect"

	"github.com/chrissnell/pixeltrend/pkg/config"
)

func main() {
	var (
		yamlFile   = flag.String("yaml", "", "Path to YAML configuration file")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite configuration file")
	)
	flag.Parse()

	if *yamlFile == "" || *sqliteFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <config.yaml> -sqlite <config.db>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("Configuration Comparison Test")
	fmt.Println("===========================")

	fmt.Printf("Loading YAML configuration: %s\n", *yamlFile)
	yamlConfig, err := config.NewYAMLProvider(*yamlFile).LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading YAML config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loading SQLite configuration: %s\n", *sqliteFile)
	sqliteProvider, err := config.NewSQLiteProvider(*sqliteFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating SQLite provider: %v\n", err)
		os.Exit(1)
	}
	defer sqliteProvider.Close()

	sqliteConfig, err := sqliteProvider.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading SQLite config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nComparison Results:")
	fmt.Println("==================")

	mismatches := compareBands(yamlConfig.Bands, sqliteConfig.Bands)
	mismatches += compareSection("Harmonic", yamlConfig.Harmonic, sqliteConfig.Harmonic)
	mismatches += compareSection("Segments", yamlConfig.Segments, sqliteConfig.Segments)
	mismatches += compareSection("Change", yamlConfig.Change, sqliteConfig.Change)
	mismatches += compareSection("Vertices", yamlConfig.Vertices, sqliteConfig.Vertices)
	mismatches += compareSection("Batch", yamlConfig.Batch, sqliteConfig.Batch)

	for name, cfg := range map[string]*config.ConfigData{"YAML": yamlConfig, "SQLite": sqliteConfig} {
		if err := cfg.Validate(); err != nil {
			fmt.Printf("✗ %s configuration is invalid: %v\n", name, err)
			mismatches++
		}
	}

	if mismatches > 0 {
		fmt.Printf("\n%d difference(s) found\n", mismatches)
		os.Exit(1)
	}
	fmt.Println("\nTest completed!")
}

func compareBands(yaml, sqlite []config.BandData) int {
	fmt.Printf("Bands - YAML: %d, SQLite: %d\n", len(yaml), len(sqlite))
	if len(yaml) != len(sqlite) {
		fmt.Println("✗ Band count mismatch")
		return 1
	}

	mismatches := 0
	for i, yamlBand := range yaml {
		sqliteBand := sqlite[i]
		if reflect.DeepEqual(yamlBand, sqliteBand) {
			fmt.Printf("✓ Band %s matches\n", yamlBand.Name)
			continue
		}
		mismatches++
		fmt.Printf("✗ Band %s differs\n", yamlBand.Name)
		if yamlBand.Name != sqliteBand.Name {
			fmt.Printf("  Name: YAML='%s', SQLite='%s'\n", yamlBand.Name, sqliteBand.Name)
		}
		if yamlBand.Improvement != sqliteBand.Improvement {
			fmt.Printf("  Improvement: YAML=%d, SQLite=%d\n", yamlBand.Improvement, sqliteBand.Improvement)
		}
		if !reflect.DeepEqual(yamlBand.Frequencies, sqliteBand.Frequencies) {
			fmt.Printf("  Frequencies: YAML=%v, SQLite=%v\n", yamlBand.Frequencies, sqliteBand.Frequencies)
		}
	}
	return mismatches
}

func compareSection(name string, yaml, sqlite interface{}) int {
	if reflect.DeepEqual(yaml, sqlite) {
		fmt.Printf("✓ %s configuration matches\n", name)
		return 0
	}
	fmt.Printf("✗ %s configuration differs\n  YAML:   %+v\n  SQLite: %+v\n", name, yaml, sqlite)
	return 1
}
