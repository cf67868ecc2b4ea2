package cli

import (
	"context"
	"flag"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/peterbourgon/ff/ffyaml"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/joeljuvel/yuegen/pkg/cmd/generate"
	"github.com/joeljuvel/yuegen/pkg/cmd/migrate"
	"github.com/joeljuvel/yuegen/pkg/cmd/parse"
	"github.com/joeljuvel/yuegen/pkg/cmd/setting"
	"github.com/joeljuvel/yuegen/pkg/cmd/snapshot"
	"github.com/joeljuvel/yuegen/pkg/song"
)

func New(version, commit, date string) *ffcli.Command {
	fs := flag.NewFlagSet("yuegen", flag.ExitOnError)

	return &ffcli.Command{
		ShortUsage: "yuegen [flags] <subcommand>",
		FlagSet:    fs,
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
		Subcommands: []*ffcli.Command{
			newVersionCommand(version, commit, date),
			newMigrateCommand(),
			newSettingCommand(),
			newParseCommand(),
			newGenerateCommand(),
			newSnapshotCommand(),
		},
	}
}

func newVersionCommand(version, commit, date string) *ffcli.Command {
	return &ffcli.Command{
		Name:       "version",
		ShortUsage: "yuegen version",
		ShortHelp:  "print version",
		Exec: func(ctx context.Context, args []string) error {
			v := version
			if v == "" {
				if buildInfo, ok := debug.ReadBuildInfo(); ok {
					v = buildInfo.Main.Version
				}
			}
			if v == "" {
				v = "dev"
			}
			versionFields := []string{v}
			if commit != "" {
				versionFields = append(versionFields, commit)
			}
			if date != "" {
				versionFields = append(versionFields, date)
			}
			fmt.Println(strings.Join(versionFields, " "))
			return nil
		},
	}
}

func options() []ff.Option {
	return []ff.Option{
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ffyaml.Parser),
		ff.WithEnvVarPrefix("YUEGEN"),
	}
}

func newMigrateCommand() *ffcli.Command {
	cmd := "migrate"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &migrate.Config{}

	fs.StringVar(&cfg.DBType, "db-type", "", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("yuegen %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "run database migrations",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return migrate.Run(ctx, cfg)
		},
	}
}

func newSettingCommand() *ffcli.Command {
	cmd := "setting"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &setting.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.DBType, "db-type", "", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")
	fs.StringVar(&cfg.Key, "key", "", "setting key (genre, system-prompt, length)")
	fs.StringVar(&cfg.Value, "value", "", "value to set")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("yuegen %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "store a generation default",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return setting.Run(ctx, cfg)
		},
	}
}

func newParseCommand() *ffcli.Command {
	cmd := "parse"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &parse.Config{}

	fs.StringVar(&cfg.Input, "input", "", "lyric script file")
	fs.StringVar(&cfg.Output, "output", "", "output file (stdout when empty)")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("yuegen %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "parse a lyric script into segments",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return parse.Run(ctx, cfg)
		},
	}
}

func newGenerateCommand() *ffcli.Command {
	cmd := "generate"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &generate.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.DBType, "db-type", "", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")
	fs.StringVar(&cfg.Song, "song", "", "stored song id to resume")
	fs.StringVar(&cfg.Input, "input", "", "lyric script file for a new song")
	fs.StringVar(&cfg.Name, "name", "", "name for a new song")
	fs.StringVar(&cfg.Genre, "genre", "", "genre for a new song")
	fs.Int64Var(&cfg.Seed, "seed", 0, "simulator seed")
	fs.DurationVar(&cfg.Rewind, "rewind", 0, "discard this trailing duration before generating")
	fs.IntVar(&cfg.DefaultLength, "default-length", song.DefaultTrackLength, "default segment length in frames")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("yuegen %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "run a generation session against the simulator",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return generate.Run(ctx, cfg)
		},
	}
}

func newSnapshotCommand() *ffcli.Command {
	cmd := "snapshot"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &snapshot.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.DBType, "db-type", "", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")
	fs.StringVar(&cfg.ID, "id", "", "snapshot id")
	fs.StringVar(&cfg.Export, "export", "", "export to this YAML file")
	fs.StringVar(&cfg.Import, "import", "", "import from this YAML file")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("yuegen %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "export or import a stored snapshot",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return snapshot.Run(ctx, cfg)
		},
	}
}
