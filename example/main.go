// This shows how to drive the optimizer from Go instead of the command line.
// Run it with a usage manifest and a shared chunk:
//
//	go run ./example share-usage.json dist/vendors-lib.js
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sharedshake/sharedshake/pkg/api"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: example [manifest] [chunk]")
		os.Exit(1)
	}

	flags := api.LoadFlags(api.FlagsOptions{
		LogLevel:       api.LogLevelWarning,
		ManifestFiles:  []string{os.Args[1]},
		PossiblyUnused: api.PossiblyUnusedKeep,
	})
	if len(flags.Errors) > 0 {
		os.Exit(1)
	}

	code, err := os.ReadFile(os.Args[2])
	if err != nil {
		fmt.Println("[ERROR] ", err.Error())
		os.Exit(1)
	}

	result := api.Optimize(string(code), api.OptimizeOptions{
		Sourcefile: os.Args[2],
		Config:     flags.Config,
		EntryHints: flags.EntryHints,
	})
	for _, warn := range result.Warnings {
		fmt.Println("[WARN] ", warn.Text)
	}
	for _, err := range result.Errors {
		fmt.Println("[ERROR] ", err.Text)
	}
	if len(result.Errors) > 0 {
		os.Exit(1)
	}

	report, _ := json.MarshalIndent(result.Report, "", "  ")
	fmt.Println(string(report))
	fmt.Printf("%d bytes -> %d bytes\n", result.Report.OriginalSize, result.Report.OptimizedSize)
}
