// Package cli provides the schemata commands: listing and describing the
// registered types, and checking, normalizing, diffing and creating documents.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/artpar/schemata/core/formatter"
	"github.com/artpar/schemata/core/jsonable"
	"github.com/artpar/schemata/core/schema"
	"github.com/artpar/schemata/core/serialize"
	"github.com/artpar/schemata/ports"
)

// Deps are the dependencies commands run with.
type Deps struct {
	Registry *schema.Registry
	Store    ports.FileStore

	// Save tunes documents written by normalize and new.
	Save serialize.Options
}

// Channel implements the CLI channel for described types.
type Channel struct {
	rootCmd    *cobra.Command
	deps       func() (Deps, error)
	formatters *formatter.Registry
	prompter   *Prompter
}

// New creates a new CLI channel. deps is called when a command runs, so
// configuration loaded by the root command's pre-run is honored.
func New(rootCmd *cobra.Command, deps func() (Deps, error)) *Channel {
	return &Channel{
		rootCmd:    rootCmd,
		deps:       deps,
		formatters: formatter.NewDefaultRegistry(),
	}
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return "cli"
}

// SetPrompter replaces the prompter used by the new command.
func (c *Channel) SetPrompter(p *Prompter) {
	c.prompter = p
}

// Register adds the commands to the root command.
func (c *Channel) Register() {
	c.rootCmd.AddCommand(
		c.buildTypesCommand(),
		c.buildDescribeCommand(),
		c.buildCheckCommand(),
		c.buildNormalizeCommand(),
		c.buildDiffCommand(),
		c.buildNewCommand(),
	)
}

// buildTypesCommand creates the types command.
func (c *Channel) buildTypesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "types",
		Short: "List the described types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := c.deps()
			if err != nil {
				return err
			}

			var records []map[string]any
			for _, m := range deps.Registry.List() {
				record, err := formatter.ToRecord(m.Summary())
				if err != nil {
					return c.formatError(cmd, err)
				}
				records = append(records, record)
			}
			return c.formatList(cmd, records, formatter.FormatOptions{
				Columns: []string{"name", "qualified", "attributes", "properties"},
			})
		},
	}

	c.addOutputFlags(cmd)
	return cmd
}

// buildDescribeCommand creates the describe command.
func (c *Channel) buildDescribeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe <type>",
		Short: "Show the attributes of a described type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := c.deps()
			if err != nil {
				return err
			}
			meta, err := lookup(deps.Registry, args[0])
			if err != nil {
				return c.formatError(cmd, err)
			}

			desc := meta.Introspect()
			record, err := formatter.ToRecord(desc)
			if err != nil {
				return c.formatError(cmd, err)
			}

			f := c.getFormatter(cmd)
			if f.Name() != "table" {
				return f.FormatRecord(cmd.OutOrStdout(), record, c.getFormatOptions(cmd))
			}

			// Tables get a header block, then one row per attribute.
			out := cmd.OutOrStdout()
			err = f.FormatRecord(out, record, formatter.FormatOptions{
				Columns: []string{"name", "qualified", "parent", "identifier", "behavior", "properties"},
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(out)

			attrs := make([]map[string]any, 0, len(desc.Attributes))
			for _, a := range desc.Attributes {
				attr, err := formatter.ToRecord(a)
				if err != nil {
					return c.formatError(cmd, err)
				}
				attrs = append(attrs, attr)
			}
			opts := c.getFormatOptions(cmd)
			opts.Columns = []string{"name", "field", "type", "default", "identifier", "setter"}
			return f.FormatList(out, attrs, opts)
		},
	}

	c.addOutputFlags(cmd)
	return cmd
}

// buildCheckCommand creates the check command.
func (c *Channel) buildCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <type> <file>...",
		Short: "Check that documents load into a type",
		Long: `Load each document into the type, with the configured behavior.
Lenient types report mismatches as warnings, strict types fail on the first one.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, meta, err := c.resolve(args[0])
			if err != nil {
				return c.formatError(cmd, err)
			}

			failed := 0
			for _, path := range args[1:] {
				if _, err := meta.FromJSON(cmd.Context(), deps.Store, path, nil, schema.Fatal()); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "FAIL %s: %v\n", path, err)
					failed++
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok   %s\n", path)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d documents failed to load as %s", failed, len(args)-1, meta.Name())
			}
			return nil
		},
	}
}

// buildNormalizeCommand creates the normalize command.
func (c *Channel) buildNormalizeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize <type> <in>",
		Short: "Rewrite a document in canonical form",
		Long: `Load the document into the type and write back its attributes: coerced,
defaults filled in, undeclared keys dropped, keys sorted.
The result goes to --out, or to stdout in the input's format.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, meta, err := c.resolve(args[0])
			if err != nil {
				return c.formatError(cmd, err)
			}

			obj, err := meta.FromJSON(cmd.Context(), deps.Store, args[1], nil, schema.Fatal())
			if err != nil {
				return c.formatError(cmd, err)
			}

			out, _ := cmd.Flags().GetString("out")
			if out != "" {
				if err := meta.SaveJSON(cmd.Context(), deps.Store, obj, out, deps.Save); err != nil {
					return c.formatError(cmd, err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "normalized %s into %s\n", args[1], out)
				return nil
			}

			data, err := serialize.Encode(args[1], meta.ToDict(obj, deps.Save.KeepNone), deps.Save)
			if err != nil {
				return c.formatError(cmd, err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringP("out", "o", "", "Write the normalized document to this path")
	return cmd
}

// buildDiffCommand creates the diff command.
func (c *Channel) buildDiffCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <type> <a> <b>",
		Short: "List the attributes that differ between two documents",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, meta, err := c.resolve(args[0])
			if err != nil {
				return c.formatError(cmd, err)
			}

			a, err := meta.FromJSON(cmd.Context(), deps.Store, args[1], nil, schema.Fatal())
			if err != nil {
				return c.formatError(cmd, err)
			}
			b, err := meta.FromJSON(cmd.Context(), deps.Store, args[2], nil, schema.Fatal())
			if err != nil {
				return c.formatError(cmd, err)
			}

			changes, err := meta.ChangedAttributes(a, b)
			if err != nil {
				return c.formatError(cmd, err)
			}

			exitCode, _ := cmd.Flags().GetBool("exit-code")
			if len(changes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No differences.")
				return nil
			}

			sanitize := jsonable.Options{KeepNone: true, Expand: deps.Registry.Expander()}
			records := make([]map[string]any, len(changes))
			for i, ch := range changes {
				records[i] = map[string]any{
					"attribute": ch.Name,
					"a":         jsonable.Sanitize(ch.A, sanitize),
					"b":         jsonable.Sanitize(ch.B, sanitize),
				}
			}

			opts := c.getFormatOptions(cmd)
			opts.Columns = []string{"attribute", "a", "b"}
			if err := c.formatList(cmd, records, opts); err != nil {
				return err
			}
			if exitCode {
				return fmt.Errorf("%d attributes differ", len(changes))
			}
			return nil
		},
	}

	cmd.Flags().Bool("exit-code", false, "Fail when the documents differ")
	c.addOutputFlags(cmd)
	return cmd
}

// buildNewCommand creates the new command.
func (c *Channel) buildNewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new <type> <out>",
		Short: "Create a document, prompting for attribute values",
		Long: `Create a document of the type. Values given with --set are used as is,
the others are prompted for; an empty answer keeps the default.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, meta, err := c.resolve(args[0])
			if err != nil {
				return c.formatError(cmd, err)
			}

			sets, _ := cmd.Flags().GetStringArray("set")
			existing := make(map[string]any, len(sets))
			for _, set := range sets {
				key, value, ok := strings.Cut(set, "=")
				if !ok {
					return c.formatError(cmd, fmt.Errorf("invalid --set %q, want key=value", set))
				}
				existing[key] = parseValue(value)
			}

			data := existing
			if interactive, _ := cmd.Flags().GetBool("prompt"); interactive {
				p := c.prompter
				if p == nil {
					p = NewPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
				}
				data, err = p.PromptForAttributes(meta, existing)
				if err != nil {
					return c.formatError(cmd, err)
				}
			}

			obj, err := meta.FromDict(data, schema.Source("input"))
			if err != nil {
				return c.formatError(cmd, err)
			}
			if err := meta.SaveJSON(cmd.Context(), deps.Store, obj, args[1], deps.Save); err != nil {
				return c.formatError(cmd, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "created %s\n", args[1])
			return nil
		},
	}

	cmd.Flags().StringArray("set", nil, "Attribute value as key=value (repeatable)")
	cmd.Flags().Bool("prompt", true, "Prompt for attributes not given with --set")
	return cmd
}

func (c *Channel) resolve(name string) (Deps, *schema.Meta, error) {
	deps, err := c.deps()
	if err != nil {
		return Deps{}, nil, err
	}
	meta, err := lookup(deps.Registry, name)
	if err != nil {
		return Deps{}, nil, err
	}
	return deps, meta, nil
}

func lookup(r *schema.Registry, name string) (*schema.Meta, error) {
	if m, ok := r.Lookup(name); ok {
		return m, nil
	}
	return nil, fmt.Errorf("unknown type %q", name)
}

// addOutputFlags adds common output format flags to a command.
func (c *Channel) addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "O", "table", "Output format: "+strings.Join(c.formatters.List(), ", "))
	cmd.Flags().Bool("no-header", false, "Disable header row (table format)")
	cmd.Flags().Bool("compact", false, "Compact output (json)")
}

// getFormatter returns the formatter for the current command.
func (c *Channel) getFormatter(cmd *cobra.Command) formatter.Formatter {
	outputFmt, _ := cmd.Flags().GetString("output")
	if outputFmt == "" {
		outputFmt = "table"
	}

	f, ok := c.formatters.Get(outputFmt)
	if !ok {
		return c.formatters.Default()
	}
	return f
}

// getFormatOptions builds format options from command flags.
func (c *Channel) getFormatOptions(cmd *cobra.Command) formatter.FormatOptions {
	noHeader, _ := cmd.Flags().GetBool("no-header")
	compact, _ := cmd.Flags().GetBool("compact")

	return formatter.FormatOptions{
		NoHeader: noHeader,
		Compact:  compact,
		MaxWidth: 40,
	}
}

// formatList formats and outputs a list of records.
func (c *Channel) formatList(cmd *cobra.Command, records []map[string]any, opts formatter.FormatOptions) error {
	base := c.getFormatOptions(cmd)
	opts.NoHeader = opts.NoHeader || base.NoHeader
	opts.Compact = opts.Compact || base.Compact
	if opts.MaxWidth == 0 {
		opts.MaxWidth = base.MaxWidth
	}
	return c.getFormatter(cmd).FormatList(cmd.OutOrStdout(), records, opts)
}

// formatError formats and outputs an error.
func (c *Channel) formatError(cmd *cobra.Command, err error) error {
	f := c.formatters.Default()
	if cmd.Flags().Lookup("output") != nil {
		f = c.getFormatter(cmd)
	}
	f.FormatError(cmd.ErrOrStderr(), err)
	return err
}

// parseValue reads JSON lists and mappings, keeping anything else as text.
func parseValue(text string) any {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
		if v, err := serialize.Decode("", []byte(trimmed)); err == nil {
			return v
		}
	}
	return text
}
