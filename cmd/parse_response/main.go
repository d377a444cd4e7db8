package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/jessevdk/go-flags"

	"desmoines-weekly-events/internal/config"
	"desmoines-weekly-events/internal/extraction"
	"desmoines-weekly-events/internal/models"
)

// Report is what the tool prints for one response file
type Report struct {
	Result       models.ExtractionResult `json:"result"`
	Rejected     []extraction.Rejection  `json:"rejected"`
	UsedFallback bool                    `json:"usedFallback"`
	Unclassified []string                `json:"unclassified,omitempty"`
	TotalEvents  int                     `json:"totalEvents"`
}

// Options are the command line flags
type Options struct {
	NoValidate bool `long:"no-validate" description:"Keep events that are missing required fields"`

	Args struct {
		File string `positional-arg-name:"response.md" description:"Generated newsletter to parse (default: stdin)"`
	} `positional-args:"yes"`
}

func parseOptions(args []string) (Options, error) {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	parser.LongDescription = "Reads a generated newsletter from the file or stdin and prints the extracted events."
	_, err := parser.ParseArgs(args)
	return opts, err
}

func main() {
	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	var raw []byte
	if path := opts.Args.File; path != "" {
		raw, err = os.ReadFile(path)
	} else {
		raw, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		log.Fatalf("Failed to read response: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	settings := cfg.ExtractionSettings()

	parsed := extraction.NewParser(settings).Parse(string(raw))
	report := Report{
		Result:       parsed.Result,
		UsedFallback: parsed.UsedFallback,
		Unclassified: parsed.Unclassified,
	}
	if !opts.NoValidate {
		report.Result, report.Rejected = extraction.NewValidator(settings).Validate(parsed.Result)
	}
	report.TotalEvents = report.Result.TotalEvents()

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal report: %v", err)
	}
	fmt.Println(string(out))

	log.Printf("Extracted %d events in %d categories (%d rejected, fallback=%v)",
		report.TotalEvents, len(report.Result.Categories), len(report.Rejected), report.UsedFallback)
}
