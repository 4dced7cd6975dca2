/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: diagnostics.go
Description: Per-iteration diagnostic output for the Akira ABC-SMC engine.
Writes one line per completed iteration (step index, current tolerance,
weighted parameter means, acceptance ratio) to the configured outfile.
*/

package core

import (
	"fmt"
	"os"
	"strings"
)

// diagWriter appends per-iteration diagnostic lines to a file. A fresh run
// truncates any previous output; a resumed run appends.
type diagWriter struct {
	f *os.File
}

func newDiagWriter(path string, resume bool) (*diagWriter, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if resume {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open outfile: %w", err)
	}
	return &diagWriter{f: f}, nil
}

// WriteIteration writes one diagnostic line.
func (w *diagWriter) WriteIteration(step int, tol float64, means []float64, ratio float64) error {
	fields := make([]string, 0, len(means))
	for _, m := range means {
		fields = append(fields, fmt.Sprintf("%.8g", m))
	}
	_, err := fmt.Fprintf(w.f, "%d\t%.8g\t%s\t%.4f\n", step, tol, strings.Join(fields, " "), ratio)
	if err != nil {
		return fmt.Errorf("failed to write diagnostics: %w", err)
	}
	return nil
}

func (w *diagWriter) Close() error { return w.f.Close() }
