package progress

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/ziadkadry99/sitechat/internal/trainer"
)

// Reporter renders training progress. Each stage gets its own bar or
// log section.
type Reporter interface {
	Report(p trainer.Progress)
	Finish()
}

// NewReporter returns a TerminalReporter in interactive terminals, or
// a CIReporter when the CI environment variable is set.
func NewReporter() Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return &CIReporter{}
	}
	return &TerminalReporter{}
}

// stageLabels maps training stages to terminal descriptions.
var stageLabels = map[trainer.Stage]string{
	trainer.StageScraping:   "Scraping pages",
	trainer.StageProcessing: "Chunking content",
	trainer.StageEmbedding:  "Generating embeddings",
	trainer.StageIndexing:   "Indexing chunks",
	trainer.StageComplete:   "Done",
}

// TerminalReporter displays a progress bar per stage.
type TerminalReporter struct {
	stage trainer.Stage
	bar   *progressbar.ProgressBar
}

func (r *TerminalReporter) Report(p trainer.Progress) {
	if p.Stage == trainer.StageComplete {
		r.Finish()
		fmt.Fprintf(os.Stderr, "Training complete: %s\n", p.Message)
		return
	}

	if p.Stage != r.stage {
		r.Finish()
		r.stage = p.Stage
		total := p.Total
		if total <= 0 {
			total = -1 // spinner until the total is known
		}
		r.bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription(stageLabels[p.Stage]),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	if r.bar != nil {
		if p.Message != "" {
			r.bar.Describe(fmt.Sprintf("%s: %s", stageLabels[p.Stage], p.Message))
		}
		_ = r.bar.Set(p.Current)
	}
}

func (r *TerminalReporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
		r.bar = nil
	}
}

// CIReporter prints line-by-line progress suitable for CI logs.
type CIReporter struct{}

func (r *CIReporter) Report(p trainer.Progress) {
	if p.Message != "" {
		fmt.Fprintf(os.Stderr, "[%s %d/%d] %s\n", p.Stage, p.Current, p.Total, p.Message)
		return
	}
	fmt.Fprintf(os.Stderr, "[%s %d/%d]\n", p.Stage, p.Current, p.Total)
}

func (r *CIReporter) Finish() {}
