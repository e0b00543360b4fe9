package analyze

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestAnalyzer() *Analyzer {
	return New(
		[]string{".txt", ".go", ".md", ".log"},
		[]string{".csv", ".tsv"},
	)
}

func TestAnalyze_MissingPath(t *testing.T) {
	st := newTestAnalyzer().Analyze(filepath.Join(t.TempDir(), "nope"))
	if st.Valid {
		t.Fatalf("missing path reported valid")
	}
}

func TestAnalyze_Directory(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"a", "b", "c"} {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	st := newTestAnalyzer().Analyze(dir)
	if !st.Valid || !st.IsDir {
		t.Fatalf("directory not recognized: %+v", st)
	}
	if st.ItemCount != 3 {
		t.Fatalf("item count = %d, want 3", st.ItemCount)
	}
}

func TestAnalyze_TextFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "a.txt")
	if err := os.WriteFile(p, []byte("short\na longer line\nend\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	st := newTestAnalyzer().Analyze(p)
	if !st.Valid || st.IsDir || !st.IsText || st.IsData {
		t.Fatalf("unexpected classification: %+v", st)
	}
	if st.Rows != 3 {
		t.Fatalf("rows = %d, want 3", st.Rows)
	}
	if st.MaxCols != len("a longer line") {
		t.Fatalf("cols = %d, want %d", st.MaxCols, len("a longer line"))
	}
	if st.Estimated {
		t.Fatalf("small file flagged as estimate")
	}
}

func TestAnalyze_CSVColumns(t *testing.T) {
	p := filepath.Join(t.TempDir(), "d.csv")
	if err := os.WriteFile(p, []byte("a,b,c,d\n1,2,3,4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	st := newTestAnalyzer().Analyze(p)
	if !st.IsData || st.MaxCols != 4 || st.Rows != 2 {
		t.Fatalf("csv stats: %+v", st)
	}
}

func TestAnalyze_TSVColumns(t *testing.T) {
	p := filepath.Join(t.TempDir(), "d.tsv")
	if err := os.WriteFile(p, []byte("a\tb\tc\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	st := newTestAnalyzer().Analyze(p)
	if !st.IsData || st.MaxCols != 3 {
		t.Fatalf("tsv stats: %+v", st)
	}
}

func TestAnalyze_EstimatesBeyondByteCap(t *testing.T) {
	p := filepath.Join(t.TempDir(), "big.log")
	line := strings.Repeat("x", 63) + "\n"
	// Well past the 32 KiB scan cap.
	body := strings.Repeat(line, 4*MaxScanBytes/len(line))
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	st := newTestAnalyzer().Analyze(p)
	if !st.Estimated {
		t.Fatalf("expected estimated rows: %+v", st)
	}
	want := strings.Count(body, "\n")
	// Extrapolation over uniform lines should land close to the truth.
	if st.Rows < want*9/10 || st.Rows > want*11/10 {
		t.Fatalf("rows = %d, want ≈%d", st.Rows, want)
	}
}

func TestAnalyze_SniffsUnknownExtension(t *testing.T) {
	p := filepath.Join(t.TempDir(), "notes.rst")
	if err := os.WriteFile(p, []byte("plain words here\nmore words\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	st := newTestAnalyzer().Analyze(p)
	if !st.IsText {
		t.Fatalf("plain-text file with unknown extension not sniffed as text")
	}
}

func TestAnalyze_BinaryFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "blob.bin")
	if err := os.WriteFile(p, []byte{0x00, 0x01, 0xff, 0xfe, 0x00, 0x10}, 0o644); err != nil {
		t.Fatal(err)
	}
	st := newTestAnalyzer().Analyze(p)
	if st.IsText || st.Rows != 0 {
		t.Fatalf("binary misclassified: %+v", st)
	}
	if st.SizeBytes != 6 {
		t.Fatalf("size = %d, want 6", st.SizeBytes)
	}
}
