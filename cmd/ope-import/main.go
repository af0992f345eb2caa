package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/ope-controller/internal/batch"
	"github.com/danielpatrickdp/ope-controller/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to ope.db")
	inPath := flag.String("in", "", "JSON file holding an array of batches")
	source := flag.String("source", "", "free-form label stored with each batch")
	flag.Parse()

	if *dbPath == "" || *inPath == "" {
		fmt.Fprintln(os.Stderr, "usage: ope-import --db path/to/ope.db --in batches.json [--source label]")
		os.Exit(2)
	}

	if err := run(*dbPath, *inPath, *source); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region import

func run(dbPath, inPath, source string) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", inPath, err)
	}
	var batches []batch.SampleBatch
	if err := json.Unmarshal(data, &batches); err != nil {
		return fmt.Errorf("parse %s: %w", inPath, err)
	}

	st, err := store.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer st.Close()

	imported := 0
	for i, b := range batches {
		id, err := st.PutBatch(b, source)
		if err != nil {
			fmt.Fprintf(os.Stderr, "batch %d rejected: %v\n", i, err)
			continue
		}
		imported++
		fmt.Printf("%s  steps=%d\n", id, b.Count())
	}

	fmt.Printf("\nImported %d of %d batches into %s\n", imported, len(batches), dbPath)
	if imported < len(batches) {
		return fmt.Errorf("%d batches rejected", len(batches)-imported)
	}
	return nil
}

// #endregion import
