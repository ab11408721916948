package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/dataprov/dataprov/pkg/core"
	"github.com/dataprov/dataprov/pkg/model"
	units "github.com/docker/go-units"
)

// terminalPrompter answers the engine's questions on the controlling terminal
type terminalPrompter struct {
	in *bufio.Reader
}

func newTerminalPrompter() *terminalPrompter {
	return &terminalPrompter{in: bufio.NewReader(os.Stdin)}
}

// Confirm asks a yes/no question, defaulting to no
func (t *terminalPrompter) Confirm(prompt string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", prompt)
	line, err := t.in.ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// SelectTag lets the user pick one of the dataset's tags, or none for the
// current working state
func (t *terminalPrompter) SelectTag(tags []model.TagDescriptor) *model.TagDescriptor {
	if len(tags) == 0 {
		return nil
	}
	fmt.Fprintln(os.Stderr, "Select a tag to export (empty for the current state):")
	for i, tag := range tags {
		fmt.Fprintf(os.Stderr, "  %d) %s\t%s\n", i+1, tag.Name, tag.Description)
	}
	fmt.Fprint(os.Stderr, "tag number: ")
	line, err := t.in.ReadString('\n')
	if err != nil {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || n < 1 || n > len(tags) {
		return nil
	}
	return &tags[n-1]
}

// namedTagPicker selects a tag by its name without prompting
type namedTagPicker struct {
	name string
}

func (p namedTagPicker) Confirm(string) bool { return false }

func (p namedTagPicker) SelectTag(tags []model.TagDescriptor) *model.TagDescriptor {
	for i := range tags {
		if tags[i].Name == p.name {
			return &tags[i]
		}
	}
	return nil
}

// tokenFromFlagOrPrompt resolves a provider access token: an explicit flag or
// config value wins, otherwise the user is prompted once
func tokenFromFlagOrPrompt(preset string) core.TokenProvider {
	return func(accessTokenURL string) (string, error) {
		if preset != "" {
			return preset, nil
		}
		if accessTokenURL != "" {
			fmt.Fprintf(os.Stderr, "An access token is required. Create one at:\n  %s\n", accessTokenURL)
		}
		fmt.Fprint(os.Stderr, "access token: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}
}

// consoleProgress reports transfer progress on stdout. Transfers run
// concurrently, so bytes are totalled rather than attributed per file.
type consoleProgress struct {
	files int64
	seen  int64
}

func newConsoleProgress() *consoleProgress {
	return &consoleProgress{}
}

func (c *consoleProgress) OnStart(label string, totalSize int64) {
	atomic.AddInt64(&c.files, 1)
	if totalSize > 0 {
		infoLogger.Printf("transferring %s (%s)", label, units.HumanSize(float64(totalSize)))
	} else {
		infoLogger.Printf("transferring %s", label)
	}
}

func (c *consoleProgress) OnProgress(bytes int64) {
	atomic.AddInt64(&c.seen, bytes)
}

func (c *consoleProgress) OnFinish() {
	if atomic.AddInt64(&c.files, -1) == 0 {
		infoLogger.Printf("%s transferred", units.HumanSize(float64(atomic.LoadInt64(&c.seen))))
	}
}
