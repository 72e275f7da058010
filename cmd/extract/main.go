// Command extract runs the extraction pipeline on a single local file and
// prints the canonical record as JSON. Tagged extraction failures also come
// out as JSON so callers can read the outcome from stdout alone.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"ormd/internal/config"
	"ormd/internal/extract"
	"ormd/internal/parser"
	"ormd/internal/parser/vertex"
	"ormd/internal/preprocess"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: extract <file.jpg|file.png|file.pdf>")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	docParser, err := vertex.NewParser(&cfg.Vertex)
	if err != nil {
		// Parser construction failures are tagged too (missing key file,
		// bad credentials). Emit them the same way as extraction failures.
		out, _ := json.Marshal(parser.AsExtractionError(err))
		fmt.Println(string(out))
		os.Exit(1)
	}

	extractor := extract.New(preprocess.New(cfg.Preprocess.TempDir), docParser)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Vertex.TimeoutSecs)*time.Second)
	defer cancel()

	result, err := extractor.Extract(ctx, os.Args[1])
	if err != nil {
		log.Fatalf("extraction failed: %v", err)
	}

	if result.Failed() {
		out, _ := json.Marshal(result.Err)
		fmt.Println(string(out))
		os.Exit(1)
	}

	out, err := json.MarshalIndent(result.Record, "", "  ")
	if err != nil {
		log.Fatalf("failed to encode record: %v", err)
	}
	fmt.Println(string(out))
}
