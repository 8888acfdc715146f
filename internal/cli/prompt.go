package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// PromptResult contains the result of a user prompt interaction.
type PromptResult struct {
	// Accepted is true if the user accepted the prompt (typed "y" or "yes").
	Accepted bool
	// Cancelled is true if reading the answer failed (e.g. Ctrl+C).
	Cancelled bool
}

// Confirm writes prompt and reads one line of input. The prompt defaults to
// "No": empty input, EOF, or anything other than y/yes declines. Callers are
// responsible for checking that the reader is interactive; Confirm itself
// works against any reader so tests can script the answers.
func Confirm(writer io.Writer, reader io.Reader, prompt string) PromptResult {
	fmt.Fprint(writer, prompt)

	scanner := bufio.NewScanner(reader)
	if !scanner.Scan() {
		if scanner.Err() != nil {
			return PromptResult{Cancelled: true}
		}
		// EOF without error: user pressed Ctrl+D, treat as decline.
		return PromptResult{}
	}

	switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
	case "y", "yes":
		return PromptResult{Accepted: true}
	default:
		return PromptResult{}
	}
}
