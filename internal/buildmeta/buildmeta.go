// Package buildmeta gathers the build metadata embedded next to the forged
// checksum: the version control id plus who built the image, where, and
// when. Everything here is resolved once, up front, so the patching core
// stays pure given its inputs.
package buildmeta

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
)

// DefaultCommand is the version control command used when none is given.
// Subversion projects typically use "svnversion -n" instead.
const DefaultCommand = "git describe --always --dirty"

// Info holds the collected metadata, ready to be written into the record's
// text fields.
type Info struct {
	VCSID string
	User  string
	Host  string
	Date  string
	Time  string
}

// Collect runs the version control command and samples the build
// environment. The command string is split shell-style but executed directly,
// without a shell; ctx bounds its runtime.
func Collect(ctx context.Context, command string) (Info, error) {
	argv, err := shellwords.Parse(command)
	if err != nil {
		return Info{}, fmt.Errorf("buildmeta: parse command %q: %w", command, err)
	}
	if len(argv) == 0 {
		return Info{}, fmt.Errorf("buildmeta: empty version control command")
	}

	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return Info{}, fmt.Errorf("buildmeta: run %q: %w: %s",
				command, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return Info{}, fmt.Errorf("buildmeta: run %q: %w", command, err)
	}

	now := time.Now()
	return Info{
		VCSID: strings.TrimSpace(string(out)),
		User:  currentUser(),
		Host:  hostname(),
		Date:  now.Format("2006-01-02"),
		Time:  now.Format("15:04:05"),
	}, nil
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	// Stripped-down build containers often have no passwd entry.
	if v := os.Getenv("USER"); v != "" {
		return v
	}
	return "unknown"
}

func hostname() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "unknown"
}
