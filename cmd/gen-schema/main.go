// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

// Command gen-schema generates the mod document JSON Schema file.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/freee/freee/internal/mod"
)

func main() {
	outPath := flag.String("o", filepath.Join("schemas", "mod.schema.json"), "output path")
	flag.Parse()

	schema, err := mod.GenerateSchema()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating schema: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(*outPath), 0o750); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating directory: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*outPath, schema, 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %s\n", *outPath)
}
