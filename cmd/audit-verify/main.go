package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/threshold-circuit/internal/audit"
)

// #region main
func main() {
	exportPath := flag.String("file", "", "path to an exported audit trail JSON")
	dbPath := flag.String("db", "", "audit database (verifies every stored run)")
	flag.Parse()

	if *exportPath == "" && *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: audit-verify --file audit_20260825_120000.json | --db audit.db")
		os.Exit(2)
	}

	if err := run(*exportPath, *dbPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region run
func run(exportPath, dbPath string) error {
	if exportPath != "" {
		entries, err := audit.LoadExport(exportPath)
		if err != nil {
			return err
		}
		if err := audit.VerifyEntries(entries); err != nil {
			return fmt.Errorf("%s: %w", exportPath, err)
		}
		fmt.Printf("%s: chain intact (%d entries)\n", exportPath, len(entries))
	}

	if dbPath != "" {
		store, err := audit.NewStore(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.ListRuns(100)
		if err != nil {
			return err
		}
		for _, runID := range runs {
			entries, err := store.LoadTrail(runID)
			if err != nil {
				return err
			}
			if err := audit.VerifyEntries(entries); err != nil {
				return fmt.Errorf("run %s: %w", runID, err)
			}
			fmt.Printf("run %s: chain intact (%d entries)\n", runID, len(entries))
		}
	}

	return nil
}

// #endregion run
