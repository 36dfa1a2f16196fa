package auth

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

func promptLine(label string, r *bufio.Scanner) (string, error) {
	fmt.Printf("%s: ", label)
	if !r.Scan() {
		if err := r.Err(); err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}
		return "", errors.New("no input received")
	}
	value := strings.TrimSpace(r.Text())
	if value == "" {
		return "", fmt.Errorf("%s cannot be empty", strings.ToLower(label))
	}
	return value, nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	return bufio.NewScanner(r)
}
