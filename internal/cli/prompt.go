package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

var errNoURL = errors.New("no URL given")

// promptForURL asks for a URL on out and reads one line from in.
func promptForURL(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter the file URL to download: ")

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("read URL: %w", err)
		}
		return "", errNoURL
	}

	line := strings.TrimSpace(scanner.Text())
	if line == "" {
		return "", errNoURL
	}
	return line, nil
}
