// ABOUTME: Subprocess backend mode invoking an external CLI harness
// ABOUTME: Captures output incrementally, enforces the wall-clock budget, and classifies exit failures

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Environment variable names the harness expects for provider access.
const (
	harnessBaseURLVar = "ANTHROPIC_BASE_URL"
	harnessTokenVar   = "ANTHROPIC_AUTH_TOKEN"
)

// dispatchHarness runs the CLI harness with the prompt as a positional
// argument. The context deadline terminates the child exactly once via
// exec.CommandContext.
func (d *Dispatcher) dispatchHarness(ctx context.Context, prompt string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	args := []string{"run", "--format", "json"}
	if d.model != "" {
		args = append(args, "--model", d.model)
	}
	args = append(args, "--", prompt)

	cmd := exec.CommandContext(runCtx, d.harness, args...)
	cmd.Env = append(os.Environ(),
		harnessBaseURLVar+"="+d.baseURL,
		harnessTokenVar+"="+d.apiKey,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// After the deadline kill, don't wait on pipes an orphaned grandchild
	// may still hold open.
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			if runCtx.Err() == context.DeadlineExceeded {
				return "", &Error{Kind: KindTimeout, Message: fmt.Sprintf("%s timed out after %s", d.harness, d.timeout)}
			}
			return "", d.classifyExit(ee.ExitCode(), stdout.String(), stderr.String())
		}
		if runCtx.Err() == context.DeadlineExceeded {
			return "", &Error{Kind: KindTimeout, Message: fmt.Sprintf("%s timed out after %s", d.harness, d.timeout)}
		}
		return "", &Error{Kind: KindSpawn, Message: fmt.Sprintf("failed to spawn %s", d.harness), Err: err}
	}

	clean := strings.TrimSpace(StripANSI(stdout.String()))
	return parseHarnessOutput(clean), nil
}

// classifyExit maps a non-zero harness exit to a failure kind using the
// captured stderr and stdout text. Classification happens exactly here so
// callers never string-match on error messages.
func (d *Dispatcher) classifyExit(code int, stdout, stderr string) *Error {
	stderrLower := strings.ToLower(stderr)

	switch {
	case strings.Contains(stderrLower, "authentication"):
		return &Error{Kind: KindAuth, Message: strings.TrimSpace(stderr)}
	case strings.Contains(stderrLower, "rate limit"):
		return &Error{Kind: KindRateLimit, Message: strings.TrimSpace(stderr)}
	case strings.Contains(stdout, "Positionals:") || strings.Contains(stdout, "Usage:"):
		// The harness printed its own usage diagnostic: the command line
		// we built was rejected.
		return &Error{Kind: KindCommandFormat, Message: fmt.Sprintf("%s rejected command line (exit %d)", d.harness, code)}
	case strings.TrimSpace(stderr) != "":
		return &Error{Kind: KindProcess, Message: strings.TrimSpace(stderr)}
	default:
		return &Error{Kind: KindProcess, Message: fmt.Sprintf("%s failed with exit code %d", d.harness, code)}
	}
}

type harnessRecord struct {
	Type string `json:"type"`
	Part struct {
		Text string `json:"text"`
	} `json:"part"`
}

// parseHarnessOutput extracts the reply from cleaned harness stdout. When
// the output is newline-delimited JSON, the first {type:"text"} record
// wins; anything that is not fully NDJSON is used verbatim.
func parseHarnessOutput(clean string) string {
	if clean == "" {
		return clean
	}
	for _, line := range strings.Split(clean, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var rec harnessRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			// Not NDJSON: the whole cleaned output is the reply.
			return clean
		}
		if rec.Type == "text" && rec.Part.Text != "" {
			return rec.Part.Text
		}
	}
	return clean
}
