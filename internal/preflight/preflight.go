// Package preflight checks that the host looks like something the pipeline
// can provision into, before any project is touched.
package preflight

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/samber/lo"

	"github.com/irgordon/laraprov/internal/config"
	"github.com/irgordon/laraprov/internal/core/services"
)

type Status string

const (
	Pass Status = "pass"
	Warn Status = "warn"
	Fail Status = "fail"
)

type Result struct {
	Check  string
	Status Status
	Detail string
}

// Checker runs the host checks. LookPath and Stat are swappable for tests.
type Checker struct {
	cfg      *config.Config
	LookPath func(string) (string, error)
	Stat     func(string) (os.FileInfo, error)
}

func NewChecker(cfg *config.Config) *Checker {
	return &Checker{cfg: cfg, LookPath: exec.LookPath, Stat: os.Stat}
}

// Run returns one result per check, in a stable order.
func (c *Checker) Run() []Result {
	var out []Result

	for _, bin := range []string{"sudo", "apt-get", "a2ensite", "systemctl"} {
		out = append(out, c.binary(bin, Fail))
	}
	out = append(out, c.binary("git", Warn))
	out = append(out, c.path("composer", c.cfg.ComposerBin, false, Fail))

	for _, dir := range []struct{ name, path string }{
		{"web root", c.cfg.WebRoot},
		{"html root", c.cfg.HTMLRoot},
		{"sites-available", c.cfg.SitesAvailable},
	} {
		out = append(out, c.path(dir.name, dir.path, true, Fail))
	}
	out = append(out, c.path("hosts file", c.cfg.HostsFile, false, Fail))
	out = append(out, c.interpreters())

	return out
}

// Failed reports whether any result is a hard failure.
func Failed(results []Result) bool {
	return lo.SomeBy(results, func(r Result) bool { return r.Status == Fail })
}

func (c *Checker) binary(name string, missing Status) Result {
	p, err := c.LookPath(name)
	if err != nil {
		return Result{Check: name, Status: missing, Detail: "not found on PATH"}
	}
	return Result{Check: name, Status: Pass, Detail: p}
}

func (c *Checker) path(name, p string, wantDir bool, missing Status) Result {
	info, err := c.Stat(p)
	switch {
	case err != nil:
		return Result{Check: name, Status: missing, Detail: fmt.Sprintf("%s: %v", p, err)}
	case wantDir && !info.IsDir():
		return Result{Check: name, Status: missing, Detail: p + " is not a directory"}
	}
	return Result{Check: name, Status: Pass, Detail: p}
}

func (c *Checker) interpreters() Result {
	php := services.NewPHPService(c.cfg.DefaultPHPVersion, c.cfg.PHPBinDir)
	versions, err := php.InstalledVersions()
	if err != nil || len(versions) == 0 {
		return Result{Check: "php", Status: Warn, Detail: "no php<major>.<minor> binaries in " + c.cfg.PHPBinDir}
	}
	status := Warn
	if lo.Contains(versions, c.cfg.DefaultPHPVersion) {
		status = Pass
	}
	return Result{Check: "php", Status: status, Detail: fmt.Sprintf("installed %v, default %s", versions, c.cfg.DefaultPHPVersion)}
}
