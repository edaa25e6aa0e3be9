package sysinfo

import (
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
)

// Context is the environment snapshot injected verbatim into the agent's
// system prompt so the model never guesses paths.
type Context struct {
	Username        string
	HomeDir         string
	Hostname        string
	OS              string
	Shell           string
	Cwd             string
	PackageManagers []string
}

var knownPackageManagers = []string{
	"apt", "apt-get", "dnf", "yum", "pacman", "zypper", "apk", "brew", "nix-env",
}

// Probe collects the snapshot. Every field degrades to a best-effort value;
// a probe failure never blocks a task from starting.
func Probe() Context {
	ctx := Context{
		OS:    runtime.GOOS + "/" + runtime.GOARCH,
		Shell: os.Getenv("SHELL"),
	}
	if ctx.Shell == "" {
		ctx.Shell = "/bin/sh"
	}
	if u, err := user.Current(); err == nil {
		ctx.Username = u.Username
	}
	if home, err := os.UserHomeDir(); err == nil {
		ctx.HomeDir = home
	}
	if hn, err := os.Hostname(); err == nil {
		ctx.Hostname = hn
	}
	if cwd, err := os.Getwd(); err == nil {
		ctx.Cwd = cwd
	}
	if info, err := host.Info(); err == nil {
		parts := []string{info.Platform, info.PlatformVersion}
		desc := strings.TrimSpace(strings.Join(parts, " "))
		if desc != "" {
			ctx.OS = desc + " (" + info.KernelArch + ")"
		}
	}
	for _, pm := range knownPackageManagers {
		if _, err := exec.LookPath(pm); err == nil {
			ctx.PackageManagers = append(ctx.PackageManagers, pm)
		}
	}
	return ctx
}

// PromptBlock renders the snapshot as the environment section of the system
// prompt.
func (c Context) PromptBlock() string {
	var b strings.Builder
	b.WriteString("SYSTEM ENVIRONMENT (use these exact paths, never guess):\n")
	fmt.Fprintf(&b, "  username : %s\n", c.Username)
	fmt.Fprintf(&b, "  home dir : %s\n", c.HomeDir)
	fmt.Fprintf(&b, "  hostname : %s\n", c.Hostname)
	fmt.Fprintf(&b, "  OS       : %s\n", c.OS)
	fmt.Fprintf(&b, "  shell    : %s\n", c.Shell)
	fmt.Fprintf(&b, "  cwd      : %s", c.Cwd)
	if len(c.PackageManagers) > 0 {
		fmt.Fprintf(&b, "\n  packages : %s", strings.Join(c.PackageManagers, ", "))
	}
	return b.String()
}
