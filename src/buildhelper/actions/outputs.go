package actions

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

// SetOutput publishes a step output by appending to the GITHUB_OUTPUT file.
// Multiline values use the heredoc form the runner defines; the delimiter
// is randomized so values can never smuggle their own terminator.
func (c *Context) SetOutput(key, value string) error {
	if c.OutputFile == "" {
		return fmt.Errorf("GITHUB_OUTPUT is not set, cannot publish output %q", key)
	}

	file, err := os.OpenFile(c.OutputFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer file.Close()

	var line string
	if strings.Contains(value, "\n") {
		delimiter := "ghadelimiter_" + uuid.NewString()
		line = fmt.Sprintf("%s<<%s\n%s\n%s\n", key, delimiter, value, delimiter)
	} else {
		line = fmt.Sprintf("%s=%s\n", key, value)
	}

	if _, err := file.WriteString(line); err != nil {
		return fmt.Errorf("failed to write output %q: %w", key, err)
	}
	return nil
}

// SetOutputs publishes multiple step outputs in one call. Map iteration
// order does not matter to the runner, but callers that care about log
// readability should call SetOutput directly.
func (c *Context) SetOutputs(outputs map[string]string) error {
	for key, value := range outputs {
		if err := c.SetOutput(key, value); err != nil {
			return err
		}
	}
	return nil
}
