// Package config loads the per-run dais settings snapshot. The file is
// optional; a missing or partial config falls back to compiled defaults.
// The snapshot is immutable for the run; the only runtime-mutable subset
// is the listing sort preference, and the engine keeps its own copy of
// that.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Theme is the named color palette used by every rendering call. Values
// are raw ANSI escape strings so users can paste any code they like.
type Theme struct {
	Reset     string `yaml:"reset"`
	Structure string `yaml:"structure"`
	Unit      string `yaml:"unit"`
	Value     string `yaml:"value"`
	Estimate  string `yaml:"estimate"`
	Text      string `yaml:"text"`
	Symlink   string `yaml:"symlink"`
	Logo      string `yaml:"logo"`
	Success   string `yaml:"success"`
	Warning   string `yaml:"warning"`
	Error     string `yaml:"error"`
	Notice    string `yaml:"notice"`
}

// Slots returns the placeholder table used by listing templates.
func (t Theme) Slots() map[string]string {
	return map[string]string{
		"{RESET}":     t.Reset,
		"{STRUCTURE}": t.Structure,
		"{UNIT}":      t.Unit,
		"{VALUE}":     t.Value,
		"{ESTIMATE}":  t.Estimate,
		"{TEXT}":      t.Text,
		"{SYMLINK}":   t.Symlink,
		"{LOGO}":      t.Logo,
		"{SUCCESS}":   t.Success,
		"{WARNING}":   t.Warning,
		"{ERROR}":     t.Error,
		"{NOTICE}":    t.Notice,
	}
}

// Formats holds one render template per entry kind. Templates mix data
// placeholders ({name} {size} {rows} {cols} {count}) with theme slots.
type Formats struct {
	Directory  string `yaml:"directory"`
	TextFile   string `yaml:"text_file"`
	DataFile   string `yaml:"data_file"`
	BinaryFile string `yaml:"binary_file"`
	Error      string `yaml:"error"`
}

// Sort is the listing order preference. This is the one part of the
// config the runtime may change, via the :ls command only.
type Sort struct {
	By        string `yaml:"by"`         // name | size | type | rows | none
	Order     string `yaml:"order"`      // asc | desc
	DirsFirst bool   `yaml:"dirs_first"` // group directories before files
	Flow      string `yaml:"flow"`       // h (row-major) | v (column-major)
}

// Config is the per-run settings snapshot.
type Config struct {
	ShowLogo       bool     `yaml:"show_logo"`
	Prompts        []string `yaml:"shell_prompts"`
	Theme          Theme    `yaml:"theme"`
	Formats        Formats  `yaml:"ls_formats"`
	Sort           Sort     `yaml:"ls_sort"`
	Padding        int      `yaml:"ls_padding"`
	TextExtensions []string `yaml:"text_extensions"`
	DataExtensions []string `yaml:"data_extensions"`
	HistorySize    int      `yaml:"history_size"`
}

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		ShowLogo: true,
		Prompts: []string{
			"$ ", // bash / zsh user
			"% ", // zsh
			"> ", // generic REPL
			"# ", // root
			"➜ ", // oh-my-zsh arrow
			"❯ ", // starship arrow
			")> ", ")>", // fish with git segment
			"~> ", "~>", // fish default
		},
		Theme: Theme{
			Reset:     "\x1b[0m",
			Structure: "\x1b[38;5;240m",
			Unit:      "\x1b[38;5;109m",
			Value:     "\x1b[0m",
			Estimate:  "\x1b[38;5;139m",
			Text:      "\x1b[0m",
			Symlink:   "\x1b[38;5;36m",
			Logo:      "\x1b[95m",
			Success:   "\x1b[92m",
			Warning:   "\x1b[93m",
			Error:     "\x1b[91m",
			Notice:    "\x1b[94m",
		},
		Formats: Formats{
			Directory:  "{TEXT}{name}{STRUCTURE}/ ({VALUE}{count} {UNIT}items{STRUCTURE})",
			TextFile:   "{TEXT}{name} {STRUCTURE}({VALUE}{size}{STRUCTURE}, {VALUE}{rows} {UNIT}R{STRUCTURE}, {VALUE}{cols} {UNIT}C{STRUCTURE})",
			DataFile:   "{TEXT}{name} {STRUCTURE}({VALUE}{size}{STRUCTURE}, {VALUE}{rows} {UNIT}R{STRUCTURE}, {VALUE}{cols} {UNIT}C{STRUCTURE})",
			BinaryFile: "{TEXT}{name} {STRUCTURE}({VALUE}{size}{STRUCTURE})",
			Error:      "{TEXT}{name}",
		},
		Sort:    Sort{By: "type", Order: "asc", DirsFirst: true, Flow: "h"},
		Padding: 2,
		TextExtensions: []string{
			".txt", ".cpp", ".hpp", ".c", ".h", ".py", ".md", ".cmake",
			".log", ".sh", ".ini", ".js", ".ts", ".html", ".css", ".xml",
			".yml", ".yaml", ".conf", ".toml", ".rs", ".go", ".java", ".rb",
		},
		DataExtensions: []string{".csv", ".tsv", ".json"},
		HistorySize:    1000,
	}
}

// Load reads config.yaml from the dais config dir, layered over Default.
// A missing file is not an error.
func Load() (Config, error) {
	cfg := Default()
	d, err := Dir()
	if err != nil {
		return cfg, err
	}
	b, err := os.ReadFile(filepath.Join(d, "config.yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Default(), err
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	def := Default()
	if len(c.Prompts) == 0 {
		c.Prompts = def.Prompts
	}
	if c.Padding < 1 {
		c.Padding = def.Padding
	}
	if c.HistorySize <= 0 {
		c.HistorySize = def.HistorySize
	}
	if !validSortKey(c.Sort.By) {
		c.Sort.By = def.Sort.By
	}
	if c.Sort.Order != "asc" && c.Sort.Order != "desc" {
		c.Sort.Order = def.Sort.Order
	}
	if c.Sort.Flow != "h" && c.Sort.Flow != "v" {
		c.Sort.Flow = def.Sort.Flow
	}
	c.TextExtensions = normalizeExts(c.TextExtensions, def.TextExtensions)
	c.DataExtensions = normalizeExts(c.DataExtensions, def.DataExtensions)
}

func validSortKey(k string) bool {
	switch k {
	case "name", "size", "type", "rows", "none":
		return true
	}
	return false
}

func normalizeExts(in, fallback []string) []string {
	out := make([]string, 0, len(in))
	for _, e := range in {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
