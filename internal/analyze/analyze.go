// Package analyze is the file-metadata collaborator behind the listing
// pipeline and the remote agent. Scanning is capped so a listing over a
// directory of multi-gigabyte logs stays responsive; when a cap is hit
// the row count is extrapolated and flagged as an estimate.
package analyze

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	// MaxScanBytes bounds how much of a file the row counter reads.
	MaxScanBytes = 32 * 1024
	// MaxScanLines bounds how many lines the row counter reads.
	MaxScanLines = 2000
)

// Stats is the metadata extracted from one path.
type Stats struct {
	IsDir     bool  `json:"is_dir"`
	Valid     bool  `json:"-"`
	ItemCount int   `json:"count"`
	SizeBytes int64 `json:"size"`
	Rows      int   `json:"rows"`
	// MaxCols is the widest line for text files and the delimiter-derived
	// column count for data files.
	MaxCols   int  `json:"cols"`
	IsText    bool `json:"is_text"`
	IsData    bool `json:"is_data"`
	Estimated bool `json:"is_estimated"`
}

// Analyzer classifies by the configured extension sets, falling back to
// content sniffing for extensions neither set knows.
type Analyzer struct {
	textExts map[string]bool
	dataExts map[string]bool
}

// New builds an Analyzer from the configured extension sets.
func New(textExts, dataExts []string) *Analyzer {
	a := &Analyzer{
		textExts: make(map[string]bool, len(textExts)),
		dataExts: make(map[string]bool, len(dataExts)),
	}
	for _, e := range textExts {
		a.textExts[strings.ToLower(e)] = true
	}
	for _, e := range dataExts {
		a.dataExts[strings.ToLower(e)] = true
	}
	return a
}

// Analyze stats a single path. A path that does not exist or cannot be
// opened returns Stats with Valid=false; it never returns an error so a
// single bad entry cannot fail a whole listing.
func (a *Analyzer) Analyze(path string) Stats {
	var st Stats
	info, err := os.Stat(path)
	if err != nil {
		return st
	}
	st.Valid = true

	if info.IsDir() {
		st.IsDir = true
		if entries, err := os.ReadDir(path); err == nil {
			st.ItemCount = len(entries)
		}
		return st
	}
	if !info.Mode().IsRegular() {
		return st
	}

	st.SizeBytes = info.Size()
	ext := strings.ToLower(filepath.Ext(path))
	st.IsData = a.dataExts[ext]
	st.IsText = st.IsData || a.textExts[ext]
	if !st.IsText {
		st.IsText = sniffText(path)
	}
	if !st.IsText || st.SizeBytes == 0 {
		return st
	}

	a.scan(path, ext, &st)
	return st
}

// scan counts rows and columns under the byte and line caps.
func (a *Analyzer) scan(path, ext string, st *Stats) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 256*1024)

	delim := ","
	if ext == ".tsv" {
		delim = "\t"
	}

	rows := 0
	bytesRead := int64(0)
	for bytesRead < MaxScanBytes && rows < MaxScanLines && sc.Scan() {
		line := sc.Text()
		bytesRead += int64(len(line)) + 1
		if rows == 0 && st.IsData {
			st.MaxCols = strings.Count(line, delim) + 1
		}
		if !st.IsData && len(line) > st.MaxCols {
			st.MaxCols = len(line)
		}
		rows++
	}

	hitCap := bytesRead >= MaxScanBytes || rows >= MaxScanLines
	if hitCap && bytesRead < st.SizeBytes && bytesRead > 0 {
		// Cap hit before EOF: extrapolate from the observed bytes/row ratio.
		st.Rows = int(float64(rows) * float64(st.SizeBytes) / float64(bytesRead))
		st.Estimated = true
		return
	}
	st.Rows = rows
}

// sniffText content-sniffs files whose extension neither set classifies.
// mimetype reads a bounded header, so this stays cheap.
func sniffText(path string) bool {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return false
	}
	for m := mt; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "text/") {
			return true
		}
	}
	return false
}
