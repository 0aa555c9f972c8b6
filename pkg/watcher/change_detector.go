package watcher

import (
	"context"
	"os"
)

// ChangeAnalysis describes what changed and whether the inputs can be reloaded
type ChangeAnalysis struct {
	NeedReload   bool
	ChangedFiles []string
	Missing      []string // Inputs that do not exist right now
}

// AnalyzeChanges decides whether a batch of changes warrants a reload. Only
// writes reload. A batch leaving an input missing is not reloaded; the
// previous graph stays until the file reappears.
func AnalyzeChanges(event ChangeEvent, inputs []string) *ChangeAnalysis {
	analysis := &ChangeAnalysis{
		ChangedFiles: event.Paths,
	}

	for _, p := range inputs {
		if _, err := os.Stat(p); err != nil {
			analysis.Missing = append(analysis.Missing, p)
		}
	}

	analysis.NeedReload = event.Type == ChangeTypeWrite && len(event.Paths) > 0 && len(analysis.Missing) == 0
	return analysis
}

// LoadFunc reloads the watched inputs.
type LoadFunc func(ctx context.Context, paths []string) error

// Reload consumes debounced events and calls load for each batch that
// warrants it. It returns when events is closed or ctx is done.
func Reload(ctx context.Context, events <-chan ChangeEvent, inputs []string, load LoadFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			analysis := AnalyzeChanges(event, inputs)
			if !analysis.NeedReload {
				if len(analysis.Missing) > 0 {
					log.Warn("Input missing, keeping current graph", "missing", analysis.Missing)
				}
				continue
			}
			log.Info("Inputs changed, reloading", "changed", analysis.ChangedFiles)
			if err := load(ctx, inputs); err != nil {
				log.Error("Reload failed", "error", err)
			}
		}
	}
}
