package terminal

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/irgordon/laraprov/internal/core/domain"
	"github.com/irgordon/laraprov/internal/telemetry"
)

func TestPrinter_Levels(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out, PlainStyles())

	p.Print(telemetry.LogLine{Project: "shop", Level: telemetry.LevelInfo, Message: "Entering step state=fetching"})
	p.Print(telemetry.LogLine{Project: "shop", Level: telemetry.LevelWarn, Message: "could not install php8.1-xml"})
	p.Print(telemetry.LogLine{Project: "shop", Level: telemetry.LevelOut, Message: "Installing dependencies from lock file"})
	p.Print(telemetry.LogLine{Level: telemetry.LevelError, Message: "Project failed"})

	assert.Equal(t,
		"[shop] Entering step state=fetching\n"+
			"[shop] warning: could not install php8.1-xml\n"+
			"[shop]   Installing dependencies from lock file\n"+
			"error: Project failed\n",
		out.String())
}

func TestPrinter_FollowStopsOnClose(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out, PlainStyles())

	ch := make(chan telemetry.LogLine, 2)
	ch <- telemetry.LogLine{Message: "one"}
	ch <- telemetry.LogLine{Message: "two"}
	close(ch)

	p.Follow(context.Background(), ch)
	assert.Equal(t, "one\ntwo\n", out.String())
}

func TestPrintSummary(t *testing.T) {
	failed := &domain.Outcome{Project: domain.Project{Name: "blog"}}
	failed.Fail(&domain.CommandFailedError{Command: "git clone", ExitCode: 128, Stderr: "fatal: repository not found"})

	run := &domain.Run{Outcomes: []*domain.Outcome{
		{Project: domain.Project{Name: "shop"}, State: domain.StateDone, PHPVersion: "8.1", Warnings: []string{"x"}},
		failed,
		{Project: domain.Project{Name: "crm"}, State: domain.StateFailed, Error: errors.New("boom").Error()},
	}}

	var out bytes.Buffer
	PrintSummary(&out, run, "test", PlainStyles())

	s := out.String()
	assert.Contains(t, s, "http://shop.test")
	assert.Contains(t, s, "1 warning(s)")
	assert.Contains(t, s, `command "git clone" failed with exit code 128:`)
	assert.NotContains(t, s, "fatal: repository not found")
	assert.NotContains(t, s, "http://blog.test")
	assert.Contains(t, s, "1 provisioned, 2 failed")
}
