package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scheduler"
	"github.com/muesli/termenv"
)

// progressPrinter writes one colored line per stage transition of every file.
type progressPrinter struct {
	mu     sync.Mutex
	out    *termenv.Output
	stages map[string]scheduler.StageKind
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{
		out:    termenv.NewOutput(w),
		stages: make(map[string]scheduler.StageKind),
	}
}

// Progress prints the stage a file entered. Repeated ticks of the same stage are silent.
func (p *progressPrinter) Progress(file string, kind scheduler.StageKind, current, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stages[file] == kind {
		return
	}
	p.stages[file] = kind

	name := p.out.String(file).Bold()
	stage := p.out.String(string(kind)).Foreground(p.out.Color("6"))
	fmt.Fprintf(p.out, "%s %s %d/%d\n", name, stage, current, total)
}

// Done prints the outcome of a file; m is nil when the import did not complete.
func (p *progressPrinter) Done(file string, m model.Model) {
	p.mu.Lock()
	defer p.mu.Unlock()

	name := p.out.String(file).Bold()
	if m == nil {
		fmt.Fprintf(p.out, "%s %s\n", name, p.out.String("failed").Foreground(p.out.Color("1")))
		return
	}
	status := p.out.String("imported").Foreground(p.out.Color("2"))
	fmt.Fprintf(p.out, "%s %s %d meshes, %d materials, %d clips, %d files\n",
		name, status, len(m.Meshes()), len(m.Materials()), m.AnimationCount(), len(m.Artifacts()))
}
