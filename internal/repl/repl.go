package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/leofalp/aichat/core/chat"
	"github.com/leofalp/aichat/internal/utils"
	"github.com/leofalp/aichat/providers/ai"
	"github.com/leofalp/aichat/providers/memory"
)

const (
	messagePrompt = "Enter message (or 'edit <index>'/quit): "
	editPrompt    = "New message: "
	usage         = "Usage: edit <index>"

	// assistantPreview is how many characters of an answer the transcript
	// listing shows.
	assistantPreview = 60
)

// Checker reports whether a provider can be dispatched.
// *dispatch.Dispatcher satisfies it.
type Checker interface {
	Check(provider string) error
}

// Preflight verifies that provider is usable before a session starts. When
// it is not, a hint is written to w and the check's error is returned.
func Preflight(w io.Writer, checker Checker, provider string) error {
	err := checker.Check(provider)
	if err == nil {
		return nil
	}

	var missing *ai.MissingConfigError
	if errors.As(err, &missing) {
		fmt.Fprintf(w, "Set %s in your environment.\n", strings.Join(missing.Keys, ", "))
	} else {
		fmt.Fprintf(w, "Cannot use provider %q: %v\n", provider, err)
	}
	return err
}

// Console drives one session from a line-oriented input.
type Console struct {
	session *chat.Session
	in      *bufio.Scanner
	out     io.Writer
	styles  styles
}

// New returns a console reading commands from in and writing to out.
func New(session *chat.Session, in io.Reader, out io.Writer) *Console {
	return &Console{
		session: session,
		in:      bufio.NewScanner(in),
		out:     out,
		styles:  newStyles(out),
	}
}

// Run loops until the user types quit or the input ends, both of which
// return nil. A transport or provider fault ends the loop with that error.
func (c *Console) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.display(ctx)
		line, ok := c.readLine(messagePrompt)
		if !ok {
			return c.in.Err()
		}
		if strings.EqualFold(strings.TrimSpace(line), "quit") {
			return nil
		}

		var err error
		if strings.HasPrefix(line, "edit ") {
			err = c.edit(ctx, line)
		} else {
			_, err = c.session.SendStream(ctx, "", line, c.write)
			c.endAnswer()
		}
		if err != nil {
			return err
		}
	}
}

// display lists user messages with their index and a preview of each
// answer. The system prompt is not shown.
func (c *Console) display(ctx context.Context) {
	for row := range c.session.Rows(ctx) {
		switch row.Role {
		case ai.RoleUser:
			fmt.Fprintf(c.out, "%s %s\n", c.styles.index.Render(strconv.Itoa(row.Index)+":"), row.Content)
		case ai.RoleAssistant:
			fmt.Fprintf(c.out, "   %s %s\n", c.styles.assistant.Render("Assistant:"), utils.Preview(row.Content, assistantPreview))
		}
	}
}

func (c *Console) edit(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		c.warn(usage)
		return nil
	}
	index, err := strconv.Atoi(fields[1])
	if err != nil {
		c.warn(usage)
		return nil
	}

	content, ok := c.readLine(editPrompt)
	if !ok {
		return c.in.Err()
	}

	_, err = c.session.EditStream(ctx, "", index, content, c.write)
	switch {
	case errors.Is(err, memory.ErrInvalidIndex):
		c.warn("Invalid index")
		return nil
	case errors.Is(err, memory.ErrNotEditable):
		c.warn("You can only edit user messages")
		return nil
	}
	c.endAnswer()
	return err
}

func (c *Console) readLine(prompt string) (string, bool) {
	fmt.Fprint(c.out, c.styles.prompt.Render(prompt))
	if !c.in.Scan() {
		fmt.Fprintln(c.out)
		return "", false
	}
	return c.in.Text(), true
}

// write is the dispatch sink: fragments go straight to the output.
func (c *Console) write(fragment string) error {
	_, err := io.WriteString(c.out, fragment)
	return err
}

func (c *Console) endAnswer() {
	fmt.Fprintln(c.out)
}

func (c *Console) warn(msg string) {
	fmt.Fprintln(c.out, c.styles.warning.Render(msg))
}
