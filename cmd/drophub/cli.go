package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/opoerator/drophub/internal/db"
	"github.com/opoerator/drophub/internal/drop"
	"github.com/opoerator/drophub/internal/errors"
	"github.com/opoerator/drophub/internal/hub"
	"github.com/opoerator/drophub/internal/identity"
	"github.com/opoerator/drophub/internal/web"
)

// maxDropBytes bounds drop content read from a file or stdin.
const maxDropBytes = 1 << 20

// Drop defaults.
const (
	defaultFrom      = "claude-code"
	defaultDropType  = "context"
	stdinDropTitle   = "stdin-drop"
	defaultListLimit = 20
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(d *deps) *cli.App {
	app := &cli.App{
		Name:    "drophub",
		Usage:   "Agent context from your drops",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Usage: "Debug logging on stderr"},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") && d.level != nil {
				d.level.Set(slog.LevelDebug)
			}
			return nil
		},
		Writer: d.out,
		Commands: []*cli.Command{
			dropCmd(d),
			listCmd(d),
			readCmd(d),
			hydrateCmd(d),
			apiCmd(d),
			scanCmd(d),
			linksCmd(d),
			serveCmd(d),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// dropCmd creates the drop command.
func dropCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "drop",
		Usage:     "Share a drop from a file or stdin",
		ArgsUsage: "[file]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "stdin", Usage: "Read content from stdin"},
			&cli.StringFlag{Name: "from", Aliases: []string{"f"}, Value: defaultFrom, Usage: "Sending agent"},
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Value: defaultDropType, Usage: "Drop type"},
			&cli.StringFlag{Name: "title", Usage: "Title (defaults to the first # heading, then the file name)"},
			&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
		},
		Action: func(c *cli.Context) error {
			var (
				content string
				stem    string
				err     error
			)
			switch {
			case c.NArg() > 0 && !c.Bool("stdin"):
				path := c.Args().First()
				content, err = readFile(path, maxDropBytes)
				if err != nil {
					return outputError(err)
				}
				stem = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			case c.Bool("stdin") || !isTerminal():
				content, err = readAllLimited(d.in, maxDropBytes)
				if err != nil {
					return outputError(err)
				}
			default:
				return outputError(errors.NewInvalidRequest("provide a file or pipe content with --stdin"))
			}
			if content == "" {
				return outputError(errors.NewInvalidRequest("drop content is empty"))
			}

			client, err := d.requireClient()
			if err != nil {
				return outputError(err)
			}

			created, err := client.CreateDrop(c.Context, hub.NewDrop{
				FromAgent: c.String("from"),
				Title:     dropTitle(c.String("title"), content, stem),
				Content:   content,
				DropType:  c.String("type"),
				Tags:      parseTags(c.String("tags")),
			})
			if err != nil {
				return outputError(err)
			}
			return d.outputJSON(created)
		},
	}
}

// listCmd creates the list command.
func listCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List recent agent drops",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Aliases: []string{"f"}, Usage: "Filter by sending agent"},
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "Filter by drop type"},
			&cli.StringFlag{Name: "since", Usage: "Only drops after this ISO timestamp"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: defaultListLimit, Usage: "Maximum drops to return"},
		},
		Action: func(c *cli.Context) error {
			client, err := d.requireClient()
			if err != nil {
				return outputError(err)
			}
			drops, err := client.ListDrops(c.Context, hub.DropFilter{
				From:  c.String("from"),
				Type:  c.String("type"),
				Since: c.String("since"),
				Limit: c.Int("limit"),
			})
			if err != nil {
				return outputError(err)
			}
			if drops == nil {
				drops = []hub.AgentDrop{}
			}
			return d.outputJSON(map[string]any{"drops": drops, "count": len(drops)})
		},
	}
}

// readCmd creates the read command.
func readCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "read",
		Usage:     "Read one agent drop",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "content", Aliases: []string{"c"}, Usage: "Print only the drop content"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("drop id is required"))
			}
			client, err := d.requireClient()
			if err != nil {
				return outputError(err)
			}
			dr, err := client.ReadDrop(c.Context, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			if c.Bool("content") {
				_, err := fmt.Fprintln(d.out, dr.Content)
				return err
			}
			return d.outputJSON(dr)
		},
	}
}

// hydrateCmd creates the hydrate command.
func hydrateCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "hydrate",
		Usage: "Print the context an agent would receive",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "session-key", Aliases: []string{"s"}, Usage: "Session key containing a phone number or email"},
			&cli.BoolFlag{Name: "json", Usage: "Print the raw context snapshot"},
		},
		Action: func(c *cli.Context) error {
			hc := d.agg.HydrateSession(c.Context, c.String("session-key"))
			if c.Bool("json") {
				return d.outputJSON(hc)
			}
			_, err := fmt.Fprintln(d.out, d.agg.RenderPrompt(hc))
			return err
		},
	}
}

// apiCmd creates the api command.
func apiCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "api",
		Usage:     "Call any hub endpoint under /api/",
		ArgsUsage: "<method> <path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "body", Aliases: []string{"b"}, Usage: "JSON request body"},
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: `Query parameters as a JSON object, e.g. '{"limit":5}'`},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return outputError(errors.NewInvalidRequest("usage: drophub api <method> <path>"))
			}
			var body any
			if raw := strings.TrimSpace(c.String("body")); raw != "" {
				if err := json.Unmarshal([]byte(raw), &body); err != nil {
					return outputError(errors.NewInvalidRequest(fmt.Sprintf("body must be JSON: %v", err)))
				}
			}
			call := hub.CallRequest{
				Method: c.Args().Get(0),
				Path:   c.Args().Get(1),
				Body:   body,
				Query:  c.String("query"),
			}
			if _, _, err := hub.ValidateCall(call); err != nil {
				return outputError(err)
			}
			client, err := d.requireClient()
			if err != nil {
				return outputError(err)
			}
			text, err := client.Call(c.Context, call)
			if err != nil {
				return outputError(err)
			}
			_, err = fmt.Fprintln(d.out, text)
			return err
		},
	}
}

// scanCmd creates the scan command.
func scanCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "List recent files from local drop folders",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "path", Aliases: []string{"p"}, Usage: "Folder to scan (repeatable; defaults to drop_paths)"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Maximum drops (defaults to max_drops)"},
		},
		Action: func(c *cli.Context) error {
			paths := d.cfg.DropPaths
			if c.IsSet("path") {
				paths = c.StringSlice("path")
			}
			limit := d.cfg.MaxDrops
			if c.IsSet("limit") {
				limit = c.Int("limit")
			}
			drops := drop.NewScanner(d.logger).Scan(paths, d.cfg.MaxDropAge(), limit)
			if drops == nil {
				drops = []drop.Drop{}
			}
			return d.outputJSON(map[string]any{"drops": drops, "count": len(drops)})
		},
	}
}

// linksCmd creates the links command.
func linksCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "links",
		Usage: "Show identities linked through connect codes",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: db.DefaultListLimit, Usage: "Maximum links to return"},
			&cli.StringFlag{Name: "for", Usage: "Show only the newest link for this phone number, email or session key"},
		},
		Action: func(c *cli.Context) error {
			if d.db == nil {
				return outputError(errors.NewInternal(fmt.Errorf("link journal unavailable")))
			}
			if key := c.String("for"); key != "" {
				id, ok := identity.Extract(key)
				if !ok {
					return outputError(errors.NewInvalidRequest(fmt.Sprintf("no phone number or email in %q", key)))
				}
				link, err := db.LatestLink(c.Context, d.db, id)
				if err != nil {
					return outputError(err)
				}
				return d.outputJSON(link)
			}
			links, err := db.ListLinks(c.Context, d.db, c.Int("limit"))
			if err != nil {
				return outputError(err)
			}
			if links == nil {
				links = []db.Link{}
			}
			return d.outputJSON(map[string]any{"links": links, "count": len(links)})
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the hook server for message events and context lookups",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Value: 8787, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			if !d.cfg.CaptureEnabled {
				d.logger.Info("capture disabled; message hooks will not reply")
			}
			srv := web.NewServer(d.agg, d.cfg, d.logger, Version, c.String("bind"), c.Int("port"))
			if err := web.Run(srv, d.logger); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// Helper functions

// requireClient returns the hub client or a NOT_CONFIGURED error.
func (d *deps) requireClient() (*hub.Client, error) {
	if d.client == nil {
		return nil, errors.NewNotConfigured()
	}
	return d.client, nil
}

// outputJSON marshals result to stdout as JSON.
func (d *deps) outputJSON(v any) error {
	enc := json.NewEncoder(d.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if hubErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", hubErr.Code, hubErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// dropTitle picks the explicit title, else the first # heading, else the
// file stem, else a placeholder for stdin drops.
func dropTitle(explicit, content, stem string) string {
	for _, t := range []string{explicit, drop.Title(content), stem} {
		if t = strings.TrimSpace(t); t != "" {
			return t
		}
	}
	return stdinDropTitle
}

// readAllLimited reads r up to limit bytes and trims surrounding whitespace.
func readAllLimited(r io.Reader, limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", errors.NewInternal(err)
	}
	if int64(len(data)) > limit {
		return "", errors.NewInvalidRequest(fmt.Sprintf("content exceeds %d bytes", limit))
	}
	return strings.TrimSpace(string(data)), nil
}

// parseTags splits a comma-separated string into a slice of tags.
func parseTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
