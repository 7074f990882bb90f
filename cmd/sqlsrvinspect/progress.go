package main

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/syssam/sqlsrv/dialect/sqlserver"
)

// stageProgress counts finished catalog queries on a terminal.
type stageProgress struct {
	bar *progressbar.ProgressBar
}

// newStageProgress returns nil unless w is a terminal. Verbose runs log
// every stage instead.
func newStageProgress(w io.Writer, verbose bool) *stageProgress {
	f, ok := w.(*os.File)
	if verbose || !ok || !isatty.IsTerminal(f.Fd()) {
		return nil
	}
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("extracting"),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	return &stageProgress{bar: bar}
}

// hook returns the extractor option feeding the bar.
func (p *stageProgress) hook() sqlserver.Option {
	return sqlserver.WithStageHook(func(st sqlserver.StageStats) {
		p.bar.Describe(st.Stage)
		_ = p.bar.Add(1)
	})
}

func (p *stageProgress) finish() {
	_ = p.bar.Finish()
}
