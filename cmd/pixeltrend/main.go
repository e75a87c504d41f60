package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/chrissnell/pixeltrend/internal/app"
	"github.com/chrissnell/pixeltrend/internal/log"
	"github.com/chrissnell/pixeltrend/pkg/config"
)

const version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

func main() {
	cfgFile := flag.String("config", "pixeltrend.yaml", "Path to configuration source:\n\t\t\t  YAML: pixeltrend.yaml\n\t\t\t  SQLite: pixeltrend.db\n\t\t\t  Use 'config-convert' tool to convert YAML→SQLite")
	cfgBackend := flag.String("config-backend", "yaml", "Configuration backend type: 'yaml' for YAML files, 'sqlite' for SQLite databases")
	input := flag.String("input", "-", "Pixel stack JSON document, '-' for stdin")
	output := flag.String("output", "-", "Record output file, '-' for stdout")
	format := flag.String("format", "", "Record format, 'json' or 'msgpack' (overrides batch.format)")
	workers := flag.Int("workers", 0, "Number of pixel workers (overrides batch.workers; default GOMAXPROCS)")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("pixeltrend %s\n", version)
		os.Exit(0)
	}

	// Set up logging
	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Load configuration
	cfgData, err := loadConfig(*cfgFile, *cfgBackend)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	in, closeIn, err := openInput(*input)
	if err != nil {
		log.Errorf("Failed to open input: %v", err)
		os.Exit(1)
	}
	defer closeIn()

	out, closeOut, err := openOutput(*output)
	if err != nil {
		log.Errorf("Failed to open output: %v", err)
		os.Exit(1)
	}

	application := app.New(cfgData, app.Options{Workers: *workers, Format: *format}, log.Named("app"))
	summary, err := application.Run(context.Background(), in, out)
	if cerr := closeOut(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Errorf("Run %s failed: %v", summary.RunID, err)
		os.Exit(1)
	}
}

func loadConfig(cfgFile, cfgBackend string) (*config.ConfigData, error) {
	filename, _ := filepath.Abs(cfgFile)

	var provider config.ConfigProvider
	var err error

	switch cfgBackend {
	case "yaml":
		provider = config.NewYAMLProvider(filename)
	case "sqlite":
		provider, err = config.NewSQLiteProvider(filename)
		if err != nil {
			return nil, fmt.Errorf("error creating SQLite provider: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported configuration backend: %s. Use 'yaml' or 'sqlite'", cfgBackend)
	}
	defer provider.Close()

	cfgData, err := provider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error reading config file. Did you pass the -config flag? Run with -h for help: %w", err)
	}

	return cfgData, nil
}

func openInput(path string) (io.Reader, func() error, error) {
	if path == "-" {
		return os.Stdin, func() error { return nil }, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func openOutput(path string) (io.Writer, func() error, error) {
	if path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
