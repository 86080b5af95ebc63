// Command migrate manages the marketplace database schema.
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	"github.com/marketplace/backend/internal/infrastructure/config"
	"github.com/marketplace/backend/internal/infrastructure/logger"
	"github.com/marketplace/backend/internal/infrastructure/migration"
	"github.com/marketplace/backend/migrations"
	"go.uber.org/zap"
)

type command struct {
	usage   string
	help    string
	// offline commands never open a database connection
	offline bool
	run     func(env *env, args []string) error
}

type env struct {
	dir      string
	log      *zap.Logger
	migrator *migration.Migrator
}

var errUsage = errors.New("bad arguments")

var commands = map[string]command{
	"up": {
		help: "apply all pending migrations",
		run:  func(e *env, _ []string) error { return e.migrator.Up() },
	},
	"down": {
		help: "roll back every migration",
		run:  func(e *env, _ []string) error { return e.migrator.Down() },
	},
	"step": {
		usage: "<n>",
		help:  "apply n migrations, or roll back when n is negative",
		run: func(e *env, args []string) error {
			n, err := intArg(args)
			if err != nil {
				return err
			}
			return e.migrator.Steps(n)
		},
	},
	"goto": {
		usage: "<version>",
		help:  "migrate up or down to version",
		run: func(e *env, args []string) error {
			v, err := intArg(args)
			if err != nil || v < 0 {
				return errUsage
			}
			return e.migrator.GoTo(uint(v))
		},
	},
	"force": {
		usage: "<version>",
		help:  "set the version without running SQL (clears a dirty state)",
		run: func(e *env, args []string) error {
			v, err := intArg(args)
			if err != nil {
				return err
			}
			return e.migrator.Force(v)
		},
	},
	"drop": {
		help: "drop every table (requires -yes)",
		run:  func(e *env, _ []string) error { return e.migrator.Drop() },
	},
	"status": {
		help: "print the applied version",
		run: func(e *env, _ []string) error {
			st, err := e.migrator.Status()
			if err != nil {
				return err
			}
			switch {
			case st.Empty:
				fmt.Println("no migrations applied")
			case st.Dirty:
				fmt.Printf("version %d (dirty: fix the schema, then run force %d)\n", st.Version, st.Version)
			default:
				fmt.Printf("version %d\n", st.Version)
			}
			return nil
		},
	},
	"create": {
		usage:   "<name> [description]",
		help:    "write an empty up/down pair into -dir (default ./migrations)",
		offline: true,
		run: func(e *env, args []string) error {
			if len(args) == 0 {
				return errUsage
			}
			dir := e.dir
			if dir == "" {
				dir = "migrations"
			}
			nf, err := migration.Create(dir, args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Println(nf.UpPath)
			fmt.Println(nf.DownPath)
			return nil
		},
	},
	"list": {
		help:    "list the migrations that would be applied",
		offline: true,
		run: func(e *env, _ []string) error {
			var src fs.FS = migrations.FS
			if e.dir != "" {
				src = os.DirFS(e.dir)
			}
			entries, err := migration.List(src)
			if err != nil {
				return err
			}
			for _, entry := range entries {
				note := ""
				if !entry.Complete() {
					note = "  (missing down)"
					if !entry.HasUp {
						note = "  (missing up)"
					}
				}
				fmt.Printf("%s%s\n", entry.Base(), note)
			}
			return nil
		},
	},
}

func main() {
	var (
		dir      string
		logLevel string
		yes      bool
	)
	flag.StringVar(&dir, "dir", "", "read migrations from this directory instead of the embedded set")
	flag.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.BoolVar(&yes, "yes", false, "confirm destructive commands")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}
	name, rest := args[0], args[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		usage()
		os.Exit(2)
	}
	if (name == "drop" || name == "down") && !yes {
		fmt.Fprintf(os.Stderr, "%s removes data; rerun with -yes\n", name)
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync(log) }()

	e := &env{dir: dir, log: log}
	if !cmd.offline {
		closeFn, err := e.connect()
		if err != nil {
			log.Fatal("Failed to prepare migrator", zap.Error(err))
		}
		defer closeFn()
	}

	if err := cmd.run(e, rest); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "usage: migrate %s %s\n", name, cmd.usage)
			os.Exit(2)
		}
		log.Error("Migration command failed", zap.String("command", name), zap.Error(err))
		os.Exit(1)
	}
}

func (e *env) connect() (func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if e.dir == "" {
		e.dir = cfg.Database.MigrationsDir
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s:%d/%s: %w", cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, err)
	}

	e.migrator, err = migration.New(db, migration.Source{FS: migrations.FS, Dir: e.dir}, e.log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return func() {
		if err := e.migrator.Close(); err != nil {
			e.log.Warn("Closing migrator", zap.Error(err))
		}
	}, nil
}

func intArg(args []string) (int, error) {
	if len(args) != 1 {
		return 0, errUsage
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, errUsage
	}
	return n, nil
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintln(out, "Marketplace schema migrations")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "usage: migrate [flags] <command> [args]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "commands:")

	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		c := commands[n]
		fmt.Fprintf(out, "  %-22s %s\n", strings.TrimSpace(n+" "+c.usage), c.help)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "flags:")
	flag.PrintDefaults()
	fmt.Fprintln(out)
	fmt.Fprintln(out, "The database connection comes from the MKT_DATABASE_* settings.")
}
