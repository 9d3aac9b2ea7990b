package engine

import (
	"log"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"flashfind/config"
)

// LogStartup prints a structured summary of the active configuration and
// the freshly loaded index, mirroring the teacher's logStartup. The boxed
// banner is only drawn when stderr is a terminal; under a log file or
// systemd journal a single key=value line (directory count, loaded entries,
// lifetime insertions, data directory) is emitted instead so it greps
// cleanly.
func LogStartup(cfg *config.Config, f *Facade) {
	stats := f.Pool().Stats()
	tty := isatty.IsTerminal(os.Stderr.Fd())

	if tty {
		sep := "-------------------------------------------"
		log.Println(sep)
		log.Printf("  FlashFind")
		log.Println(sep)
		log.Printf("  %-22s %d director%s", "Watching:", len(cfg.WatchedDirectories), plural(len(cfg.WatchedDirectories)))
		for _, d := range cfg.WatchedDirectories {
			log.Printf("    %s", d)
		}
		log.Printf("  %-22s %s", "Loaded entries:", humanize.Comma(stats.FileCount))
		log.Printf("  %-22s %s", "Lifetime insertions:", humanize.Comma(stats.Insertions))
		log.Printf("  %-22s %s", "Data directory:", cfg.DataDir)
		log.Printf("  %-22s %s", "Auto-save interval:", autoSaveStr(cfg))
		log.Printf("  %-22s %.2f", "Auto-compact threshold:", cfg.AutoCompactThreshold)
		log.Println(sep)
		return
	}

	log.Printf("flashfind: starting, watching=%d loaded_entries=%s lifetime_insertions=%s data_dir=%s",
		len(cfg.WatchedDirectories), humanize.Comma(stats.FileCount), humanize.Comma(stats.Insertions), cfg.DataDir)
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

func autoSaveStr(cfg *config.Config) string {
	if cfg.AutoSaveInterval <= 0 {
		return "disabled"
	}
	return cfg.AutoSaveInterval.String()
}
