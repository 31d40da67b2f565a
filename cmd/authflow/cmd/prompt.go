package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

var errInputClosed = errors.New("input closed")

// console serializes writes from the prompt loop, the notifier and the resend countdown.
type console struct {
	mu  sync.Mutex
	out io.Writer
	in  *bufio.Scanner
}

func newConsole(in io.Reader, out io.Writer) *console {
	return &console{out: out, in: bufio.NewScanner(in)}
}

func (c *console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.Write(p)
}

func (c *console) printf(format string, args ...any) {
	fmt.Fprintf(c, format, args...)
}

// ask prints prompt and returns the next trimmed input line.
func (c *console) ask(prompt string) (string, error) {
	c.printf("%s", prompt)
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return "", err
		}
		return "", errInputClosed
	}
	return strings.TrimSpace(c.in.Text()), nil
}

// confirm asks a yes/no question until it gets an answer.
func (c *console) confirm(prompt string) (bool, error) {
	for {
		answer, err := c.ask(prompt)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		c.printf("Please answer y or n.\n")
	}
}
