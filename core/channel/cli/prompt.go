package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/artpar/schemata/core/jsonable"
	"github.com/artpar/schemata/core/schema"
	"github.com/artpar/schemata/core/types"
)

// Prompter handles interactive CLI input.
type Prompter struct {
	reader *bufio.Reader
	out    io.Writer
	quiet  bool
}

// NewPrompter creates a prompter reading answers from in.
// Prompts are written to out only when in is a terminal.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	quiet := true
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		quiet = false
	}
	return &Prompter{
		reader: bufio.NewReader(in),
		out:    out,
		quiet:  quiet,
	}
}

// PromptForAttributes asks for every attribute of m missing from existing.
// Empty answers are skipped so the attribute keeps its default.
func (p *Prompter) PromptForAttributes(m *schema.Meta, existing map[string]any) (map[string]any, error) {
	result := make(map[string]any, len(existing))
	for k, v := range existing {
		result[k] = v
	}

	for _, a := range m.Attributes() {
		if _, ok := result[a.Name]; ok {
			continue
		}

		value, err := p.Prompt(promptText(a))
		if errors.Is(err, io.EOF) && value == "" {
			break
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		if value != "" {
			result[a.Name] = parseValue(value)
		}
	}

	return result, nil
}

// Prompt displays a prompt and reads a line of input.
// The last line may end without a newline, it is returned with io.EOF.
func (p *Prompter) Prompt(prompt string) (string, error) {
	if !p.quiet {
		fmt.Fprint(p.out, prompt)
	}
	line, err := p.reader.ReadString('\n')
	return strings.TrimSpace(line), err
}

// promptText is the label, type and default shown for a.
func promptText(a *schema.Attribute) string {
	var b strings.Builder
	b.WriteString(formatPromptLabel(a.Name))

	t := types.Unwrap(a.Type)
	if e, ok := t.(*types.EnumType); ok {
		fmt.Fprintf(&b, " [%s]", strings.Join(e.Values(), "/"))
	} else {
		fmt.Fprintf(&b, " (%s)", t.Text())
	}
	if def := a.Default(); def != nil {
		fmt.Fprintf(&b, " default %s", types.Repr(jsonable.Sanitize(def, jsonable.Options{})))
	}
	b.WriteString(": ")
	return b.String()
}

// formatPromptLabel formats an attribute name as a prompt label.
func formatPromptLabel(name string) string {
	// Convert snake_case to Title Case
	words := strings.Split(name, "_")
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}
