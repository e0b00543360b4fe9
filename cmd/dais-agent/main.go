// dais-agent is the stats collector deployed to remote hosts. It scans
// the requested directories and emits the sentinel-framed record array
// the wrapper parses on the local side. Built per target architecture
// and staged under the agents config directory.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dais/internal/analyze"
	"dais/internal/config"
	"dais/internal/remote"
)

func main() {
	showHidden := flag.Bool("a", false, "include hidden entries")
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		paths = []string{"."}
	}

	def := config.Default()
	analyzer := analyze.New(def.TextExtensions, def.DataExtensions)

	var records []remote.Record
	for _, p := range paths {
		entries, err := os.ReadDir(p)
		if err != nil {
			continue
		}
		for _, ent := range entries {
			name := ent.Name()
			if !*showHidden && strings.HasPrefix(name, ".") {
				continue
			}
			records = append(records, remote.FromStats(name, analyzer.Analyze(filepath.Join(p, name))))
		}
	}

	payload, err := remote.RenderPayload(records)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dais-agent:", err)
		os.Exit(1)
	}
	fmt.Println(payload)
}
