package sphinx

import (
	"bytes"
	"log/slog"
	"os/exec"
	"strings"
)

// runCaptured executes cmd with stdout and stderr captured into buffers and
// returns the combined output for error reporting. Both tools write
// diagnostics to either stream, so the streams are logged when non-empty and
// folded together on failure.
func runCaptured(cmd *exec.Cmd, tool string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	outStr := strings.TrimSpace(stdout.String())
	errStr := strings.TrimSpace(stderr.String())
	if outStr != "" {
		slog.Debug(tool+" stdout", "output", outStr)
	}
	if errStr != "" {
		slog.Warn(tool+" stderr", "error_output", errStr)
	}

	output := errStr
	if output == "" {
		output = outStr
	} else if outStr != "" {
		output = outStr + "\n" + errStr
	}
	return output, err
}
