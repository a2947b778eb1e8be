package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/condense/internal/compact"
	"github.com/hpungsan/condense/internal/errors"
	"github.com/hpungsan/condense/internal/ops"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *ops.Env) *cli.App {
	app := &cli.App{
		Name:    "condense",
		Usage:   "Incremental versioned compression of conversation logs",
		Version: Version,
		Commands: []*cli.Command{
			trackCmd(env),
			statusCmd(env),
			compressCmd(env),
			recompressCmd(env),
			listCmd(env),
			showCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// idFlags returns the addressing flags shared by all commands.
func idFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Required: true, Usage: "Project identifier"},
		&cli.StringFlag{Name: "session", Aliases: []string{"s"}, Required: true, Usage: "Session identifier"},
	}
}

// settingsFlags returns the compression settings flags.
func settingsFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "uniform", Usage: "Compression mode: uniform|tiered"},
		&cli.Float64Flag{Name: "ratio", Usage: "Uniform mode: target output/input token ratio in (0, 1]"},
		&cli.StringFlag{Name: "aggressiveness", Aliases: []string{"a"}, Usage: "Uniform mode: light|moderate|aggressive"},
		&cli.StringFlag{Name: "tier-preset", Usage: "Tiered mode: conservative|balanced|aggressive"},
		&cli.StringFlag{Name: "tiers", Usage: "Tiered mode: custom tiers as JSON array"},
		&cli.StringFlag{Name: "model", Usage: "Model for API-backed compaction"},
		&cli.BoolFlag{Name: "remove-non-conversation", Usage: "Drop non-conversation log entries before compacting"},
		&cli.IntFlag{Name: "skip-first", Usage: "Skip the first N messages of the range"},
	}
}

// settingsFromFlags builds compact.Settings from CLI flags. Validation is
// left to the operation so the CLI and MCP surfaces reject identically.
func settingsFromFlags(c *cli.Context) (compact.Settings, error) {
	s := compact.Settings{
		Mode:                  compact.Mode(c.String("mode")),
		Model:                 c.String("model"),
		RemoveNonConversation: c.Bool("remove-non-conversation"),
		SkipFirstMessages:     c.Int("skip-first"),
	}

	switch s.Mode {
	case compact.ModeTiered:
		tiered := &compact.TieredSettings{
			TierPreset: compact.TierPreset(c.String("tier-preset")),
		}
		if raw := c.String("tiers"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &tiered.Tiers); err != nil {
				return s, errors.NewInvalidSettings(fmt.Sprintf("tiers must be a JSON array: %v", err))
			}
		}
		if tiered.TierPreset == "" && len(tiered.Tiers) == 0 {
			tiered.TierPreset = compact.PresetBalanced
		}
		s.Tiered = tiered
	default:
		uniform := &compact.UniformSettings{
			CompactionRatio: c.Float64("ratio"),
			Aggressiveness:  compact.Level(c.String("aggressiveness")),
		}
		if uniform.Aggressiveness == "" {
			uniform.Aggressiveness = compact.LevelModerate
		}
		s.Uniform = uniform
	}

	return s, nil
}

// trackCmd creates the track command.
func trackCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "track",
		Usage: "Register a conversation log file as a tracked session",
		Flags: append(idFlags(),
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true, Usage: "Path to the JSONL source log"},
		),
		Action: func(c *cli.Context) error {
			output, err := ops.Track(c.Context, env, ops.TrackInput{
				ProjectID: c.String("project"),
				SessionID: c.String("session"),
				File:      c.String("file"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// statusCmd creates the status command.
func statusCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Detect a session's uncompressed delta (dry run)",
		Flags: idFlags(),
		Action: func(c *cli.Context) error {
			output, err := ops.Status(c.Context, env, ops.StatusInput{
				ProjectID: c.String("project"),
				SessionID: c.String("session"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// compressCmd creates the compress command.
func compressCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "compress",
		Usage: "Compress the session's newly appended messages as a new part",
		Flags: append(idFlags(), settingsFlags()...),
		Action: func(c *cli.Context) error {
			settings, err := settingsFromFlags(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.CompressDelta(c.Context, env, ops.CompressDeltaInput{
				ProjectID: c.String("project"),
				SessionID: c.String("session"),
				Settings:  settings,
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// recompressCmd creates the recompress command.
func recompressCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "recompress",
		Usage: "Re-compress an existing part at a different compression level",
		Flags: append(idFlags(), append(settingsFlags(),
			&cli.IntFlag{Name: "part", Required: true, Usage: "Part number to re-compress"},
		)...),
		Action: func(c *cli.Context) error {
			settings, err := settingsFromFlags(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.RecompressPart(c.Context, env, ops.RecompressPartInput{
				ProjectID:  c.String("project"),
				SessionID:  c.String("session"),
				PartNumber: c.Int("part"),
				Settings:   settings,
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List tracked sessions, or one session's versions grouped by part",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Required: true, Usage: "Project identifier"},
			&cli.StringFlag{Name: "session", Aliases: []string{"s"}, Usage: "Optional session identifier"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(c.Context, env, ops.ListInput{
				ProjectID: c.String("project"),
				SessionID: c.String("session"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// showCmd creates the show command.
func showCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Read back one version's artifact",
		Flags: append(idFlags(),
			&cli.StringFlag{Name: "version", Usage: "Version id (e.g. part1_v001)"},
			&cli.StringFlag{Name: "file", Usage: "Base artifact filename"},
			&cli.StringFlag{Name: "format", Value: "markdown", Usage: "Output format: markdown|jsonl|html"},
			&cli.BoolFlag{Name: "raw", Usage: "Print the artifact content only, not the JSON envelope"},
		),
		Action: func(c *cli.Context) error {
			output, err := ops.Show(c.Context, env, ops.ShowInput{
				ProjectID: c.String("project"),
				SessionID: c.String("session"),
				VersionID: c.String("version"),
				File:      c.String("file"),
				Format:    ops.ShowFormat(c.String("format")),
			})
			if err != nil {
				return outputError(err)
			}
			if c.Bool("raw") {
				fmt.Fprint(os.Stdout, output.Content)
				if !strings.HasSuffix(output.Content, "\n") {
					fmt.Fprintln(os.Stdout)
				}
				return nil
			}
			return outputJSON(output)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if cErr, ok := err.(*errors.CondenseError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", cErr.Code, cErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
