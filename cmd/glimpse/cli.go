package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/glimpse/internal/errors"
	"github.com/hpungsan/glimpse/internal/ops"
	"github.com/hpungsan/glimpse/internal/record"
)

// newCLIApp creates the CLI application with all commands.
// d may be nil when only help or version output is needed.
func newCLIApp(d *ops.Deps) *cli.App {
	app := &cli.App{
		Name:    "glimpse",
		Usage:   "Capture what you are looking at, with the context around it",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"V"}, Usage: "Mirror debug logs to stderr"},
		},
		Commands: []*cli.Command{
			captureCmd(d),
			shortcutCmd(d, record.TypeClipboard, "Capture clipboard text with its context"),
			shortcutCmd(d, record.TypeSelection, "Capture the selected text with its context"),
			shortcutCmd(d, record.TypeScreenshot, "Capture a screenshot with its context"),
			listCmd(d),
			showCmd(d),
			latestCmd(d),
			commentCmd(d),
			screenshotsCmd(d),
			annotateCmd(d),
			exportCmd(d),
			importCmd(d),
			reportCmd(d),
			configCmd(d),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func captureFlags(withType bool) []cli.Flag {
	flags := []cli.Flag{
		&cli.BoolFlag{Name: "area", Aliases: []string{"a"}, Usage: "Select a screen region (screenshot captures)"},
		&cli.BoolFlag{Name: "with-screenshot", Usage: "Add a full-screen screenshot (text captures)"},
		&cli.BoolFlag{Name: "with-selection", Usage: "Add the selected text (screenshot captures)"},
		&cli.StringFlag{Name: "comment", Aliases: []string{"c"}, Usage: "Initial comment"},
		&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
	}
	if withType {
		flags = append([]cli.Flag{
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Value: string(record.TypeScreenshot), Usage: "Capture type: screenshot|clipboard|selection"},
		}, flags...)
	}
	return flags
}

func runCapture(c *cli.Context, d *ops.Deps, typ record.CaptureType) error {
	output, err := ops.Capture(c.Context, d, ops.CaptureInput{
		Type:           typ,
		Region:         c.Bool("area"),
		WithScreenshot: c.Bool("with-screenshot"),
		WithSelection:  c.Bool("with-selection"),
		Comment:        c.String("comment"),
		Tags:           record.ParseTags(c.String("tags")),
	})
	if err != nil {
		return outputError(err)
	}
	return outputJSON(output)
}

// captureCmd creates the capture command.
func captureCmd(d *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:  "capture",
		Usage: "Take a capture and save it to the capture directory",
		Flags: captureFlags(true),
		Action: func(c *cli.Context) error {
			return runCapture(c, d, record.CaptureType(strings.ToLower(c.String("type"))))
		},
	}
}

// shortcutCmd creates a capture command fixed to one type.
func shortcutCmd(d *ops.Deps, typ record.CaptureType, usage string) *cli.Command {
	return &cli.Command{
		Name:  string(typ),
		Usage: usage,
		Flags: captureFlags(false),
		Action: func(c *cli.Context) error {
			return runCapture(c, d, typ)
		},
	}
}

// listCmd creates the list command.
func listCmd(d *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List captures, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "Filter by type"},
			&cli.StringFlag{Name: "tag", Usage: "Filter by tag"},
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Substring over text, comment, app, window, URL and title"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "json", Usage: "Output format: json|table"},
		},
		Action: func(c *cli.Context) error {
			format, err := parseFormat(c.String("format"), "table")
			if err != nil {
				return outputError(err)
			}
			output, err := ops.List(d, ops.ListInput{
				Type:   c.String("type"),
				Tag:    c.String("tag"),
				Query:  c.String("query"),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			if format == "table" {
				return outputText(renderSummaryTable(output.Items, output.Pagination))
			}
			return outputJSON(output)
		},
	}
}

// showCmd creates the show command.
func showCmd(d *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a capture by id or file path",
		ArgsUsage: "<id|path>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-content", Usage: "Exclude activeViewContent from output"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "json", Usage: "Output format: json|text"},
		},
		Action: func(c *cli.Context) error {
			format, err := parseFormat(c.String("format"), "text")
			if err != nil {
				return outputError(err)
			}
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("id or path is required"))
			}
			input := ops.FetchInput{Ref: c.Args().First()}
			if c.Bool("no-content") {
				includeContent := false
				input.IncludeContent = &includeContent
			}

			output, err := ops.Fetch(d, input)
			if err != nil {
				return outputError(err)
			}
			if format == "text" {
				return outputText(renderCapture(output))
			}
			return outputJSON(output)
		},
	}
}

// latestCmd creates the latest command.
func latestCmd(d *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:  "latest",
		Usage: "Get the most recent capture",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "Filter by type"},
			&cli.BoolFlag{Name: "include-content", Usage: "Include activeViewContent in output"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Latest(d, ops.LatestInput{
				Type:           c.String("type"),
				IncludeContent: c.Bool("include-content"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func amendFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "comment", Aliases: []string{"c"}, Usage: "Comment text (replaces any existing comment)"},
		&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags to add"},
	}
}

// commentCmd creates the comment command.
func commentCmd(d *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:      "comment",
		Usage:     "Comment on a capture (external screenshots are promoted to new captures)",
		ArgsUsage: "<id|path>",
		Flags:     amendFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("id or path is required"))
			}
			output, err := ops.Comment(d, ops.CommentInput{
				Ref:     c.Args().First(),
				Comment: c.String("comment"),
				Tags:    record.ParseTags(c.String("tags")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// screenshotsCmd creates the screenshots command.
func screenshotsCmd(d *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:  "screenshots",
		Usage: "List screenshots taken outside glimpse, creating missing sidecars",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Screenshots(d, ops.ScreenshotsInput{
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// annotateCmd creates the annotate command.
func annotateCmd(d *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:      "annotate",
		Usage:     "Comment on an external screenshot by file name",
		ArgsUsage: "<file>",
		Flags:     amendFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("file name is required"))
			}
			output, err := ops.Annotate(d, ops.AnnotateInput{
				Image:   c.Args().First(),
				Comment: c.String("comment"),
				Tags:    record.ParseTags(c.String("tags")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(d *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export captures to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.glimpse/exports/<type|all>-<timestamp>.jsonl)"},
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "Filter by type"},
			&cli.StringFlag{Name: "tag", Usage: "Filter by tag"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, d, ops.ExportInput{
				Path: c.String("path"),
				Type: c.String("type"),
				Tag:  c.String("tag"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(d *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import captures from a JSONL export",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: string(ops.ImportModeError), Usage: "Collision mode: error|skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Import(d, ops.ImportInput{
				Path: c.String("path"),
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// reportCmd creates the report command.
func reportCmd(d *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:      "report",
		Usage:     "Write a capture as a standalone HTML page",
		ArgsUsage: "<id|path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output path (default: ~/.glimpse/exports/report-<id>.html)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("id or path is required"))
			}
			output, err := ops.Report(d, ops.ReportInput{
				Ref:  c.Args().First(),
				Path: c.String("out"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// configCmd creates the config command.
func configCmd(d *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Print the effective configuration",
		Action: func(c *cli.Context) error {
			return outputJSON(struct {
				Home   string `json:"home"`
				Config any    `json:"config"`
			}{d.Home, d.Config})
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func outputText(s string) error {
	_, err := fmt.Fprintln(os.Stdout, s)
	return err
}

// outputError formats error for CLI. Client errors exit with status 2.
func outputError(err error) error {
	if ge, ok := errors.As(err); ok {
		code := 1
		if ge.Status >= 400 && ge.Status < 500 {
			code = 2
		}
		return cli.Exit(fmt.Sprintf("[%s] %s", ge.Code, ge.Message), code)
	}
	return cli.Exit(err.Error(), 1)
}

func parseFormat(format, alt string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "", "json":
		return "json", nil
	case alt:
		return f, nil
	default:
		return "", errors.NewInvalidRequest(fmt.Sprintf("format must be json or %s", alt))
	}
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	labelStyle  = lipgloss.NewStyle().Bold(true).Width(10)
)

// renderSummaryTable renders list output as a bordered table.
func renderSummaryTable(items []record.Summary, p ops.Pagination) string {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		source := record.Deref(it.Title)
		if source == "" {
			source = record.Deref(it.App)
		}
		shot := ""
		if it.HasScreenshot {
			shot = "yes"
		}
		rows = append(rows, []string{
			it.ID,
			string(it.Type),
			it.Timestamp,
			truncateCell(source, 30),
			truncateCell(it.Excerpt, 40),
			shot,
			strings.Join(it.Tags, ","),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "TYPE", "TIMESTAMP", "SOURCE", "TEXT", "SHOT", "TAGS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	footer := fmt.Sprintf("%d of %d (offset %d)", len(items), p.Total, p.Offset)
	if p.HasMore {
		footer += ", more available"
	}
	return t.Render() + "\n" + dimStyle.Render(footer)
}

// renderCapture renders one capture as labeled lines.
func renderCapture(out *ops.FetchOutput) string {
	var b strings.Builder
	line := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}

	line("id", out.ID)
	line("type", string(out.Type))
	line("time", out.Timestamp)
	line("app", record.Deref(out.App))
	line("window", record.Deref(out.Window))
	line("url", record.Deref(out.URL))
	line("title", record.Deref(out.Title))
	line("image", out.ScreenshotFile())
	line("comment", record.Deref(out.Comment))
	line("tags", strings.Join(out.Tags, ", "))
	line("file", out.Path)
	if text := record.Deref(out.SelectedText); text != "" {
		b.WriteString("\n")
		b.WriteString(text)
		b.WriteString("\n")
	}
	if out.Outline != nil && len(out.Outline.Headings) > 0 {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("outline"))
		b.WriteString("\n")
		for _, h := range out.Outline.Headings {
			b.WriteString(strings.Repeat("  ", max(h.Level-1, 0)))
			b.WriteString("- ")
			b.WriteString(h.Text)
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncateCell(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if cut := record.Truncate(s, n); cut != s {
		return cut + "…"
	}
	return s
}
