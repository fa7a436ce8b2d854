package terminal

import (
	"fmt"
	"io"
	"strings"

	"github.com/rodaine/table"

	"github.com/irgordon/laraprov/internal/core/domain"
)

// PrintSummary writes the per-project result table for a finished run.
func PrintSummary(w io.Writer, run *domain.Run, tld string, styles Styles) {
	tbl := table.New("Project", "State", "PHP", "URL", "Notes").
		WithWriter(w).
		WithHeaderFormatter(func(format string, vals ...interface{}) string {
			return styles.Header.Render(fmt.Sprintf(format, vals...))
		})

	for _, o := range run.Outcomes {
		url := ""
		if o.State == domain.StateDone {
			url = "http://" + o.Project.Name + "." + tld
		}
		tbl.AddRow(o.Project.Name, stateLabel(o.State, styles), o.PHPVersion, url, notes(o))
	}
	tbl.Print()

	done, failed := run.Counts()
	fmt.Fprintf(w, "\n%d provisioned, %d failed\n", done, failed)
}

func stateLabel(s domain.ProjectState, styles Styles) string {
	switch s {
	case domain.StateDone:
		return styles.Done.Render(string(s))
	case domain.StateFailed:
		return styles.Failed.Render(string(s))
	}
	return string(s)
}

func notes(o *domain.Outcome) string {
	if o.Error != "" {
		// Command failures carry stderr after the first line.
		return strings.SplitN(o.Error, "\n", 2)[0]
	}
	if n := len(o.Warnings); n > 0 {
		return fmt.Sprintf("%d warning(s)", n)
	}
	return ""
}
