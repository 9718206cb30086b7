package output

import (
	"io"

	"github.com/schollz/progressbar/v3"
)

// Progress is a terminal progress bar. A disabled Progress ignores every call.
type Progress struct {
	bar *progressbar.ProgressBar
}

// NewProgress draws a bar of total steps on w when enabled.
func NewProgress(w io.Writer, total int, description string, enabled bool) *Progress {
	if !enabled || total <= 0 {
		return &Progress{}
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)
	return &Progress{bar: bar}
}

// Add advances the bar by one step. Safe for concurrent use.
func (p *Progress) Add() {
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

// Finish completes and clears the bar.
func (p *Progress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
