package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"

	"github.com/tuannm99/novacol/internal"
	"github.com/tuannm99/novacol/internal/engine"
	"github.com/tuannm99/novacol/internal/loader"
	"github.com/tuannm99/novacol/internal/pivot"
	"github.com/tuannm99/novacol/internal/sql/executor"
	"github.com/tuannm99/novacol/server/novacolwire"
	"github.com/tuannm99/novacol/sqlclient"
)

const helpText = `meta commands:
  \q | quit | exit       quit
  \tables                list tables
  \arrow <table>         show the table as an Arrow record batch schema
  \history               print history
  \help                  show help

statements (end with ';', multiline is supported):
  CREATE TABLE t (col TYPE, ...);
  DROP TABLE t;
  INSERT INTO t VALUES (...);
  SELECT * FROM t [WHERE col = literal];
  PIVOT t BY <text col> ON <col> USING COUNT|SUM|AVG|MIN|MAX [INTO name];
  LOAD 'file.csv' INTO t;
  SHOW TABLES;`

// loadFlags collects repeated -load name=path.csv values.
type loadFlags []string

func (l *loadFlags) String() string { return strings.Join(*l, ",") }

func (l *loadFlags) Set(v string) error {
	name, path, ok := strings.Cut(v, "=")
	if !ok || name == "" || path == "" {
		return fmt.Errorf("want name=path.csv, got %q", v)
	}
	*l = append(*l, v)
	return nil
}

func main() {
	os.Exit(run())
}

func run() int {
	var loads loadFlags
	var (
		cfgPath    = flag.String("config", "", "YAML config file")
		histPath   = flag.String("history", "", "history file path (default from config, then ~/.novacol_history)")
		oneShotSQL = flag.String("c", "", "execute one statement and exit (must end with ';')")
		serve      = flag.Bool("serve", false, "serve statements over TCP on server.addr instead of starting a REPL")
		addr       = flag.String("addr", "", "connect to a novacol server instead of using an in-process database")
		timeout    = flag.Duration("timeout", 3*time.Second, "dial and per-statement timeout with -addr")
	)
	flag.Var(&loads, "load", "preload a CSV file as name=path.csv (repeatable)")
	flag.Parse()

	cfg, err := internal.LoadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}

	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	s := &session{out: os.Stdout}
	if *addr != "" {
		if *serve || len(loads) > 0 {
			fmt.Fprintln(os.Stderr, "-addr cannot be combined with -serve or -load")
			return 2
		}
		cli, err := sqlclient.Dial(*addr, *timeout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dial: %v\n", err)
			return 1
		}
		defer func() { _ = cli.Close() }()
		cli.SetRWTimeout(*timeout)
		s.ex = cli
	} else {
		db := engine.NewDatabase(pivot.Options{
			Workers:          cfg.Pivot.Workers,
			MinRowsPerWorker: cfg.Pivot.MinRowsPerWorker,
		}, logger)
		defer func() { _ = db.Close() }()

		ex := executor.NewExecutor(db, loader.Options{Comma: cfg.Comma(), Logger: logger})
		if err := preload(db, ex.Loader, loads); err != nil {
			fmt.Fprintf(os.Stderr, "load: %v\n", err)
			return 1
		}
		s.db, s.ex = db, ex
	}

	if *serve {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if err := novacolwire.NewServer(s.ex, logger).ListenAndServe(ctx, cfg.Server.Addr); err != nil {
			fmt.Fprintf(os.Stderr, "serve: %v\n", err)
			return 1
		}
		return 0
	}

	// one-shot mode
	if strings.TrimSpace(*oneShotSQL) != "" {
		res, err := s.ex.ExecSQL(*oneShotSQL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		printResult(os.Stdout, res)
		return 0
	}

	path := *histPath
	if path == "" {
		path = cfg.CLI.HistoryFile
	}
	if path == "" {
		path = defaultHistoryPath()
	}
	s.hist = NewHistory(path)
	if err := s.hist.Load(cfg.CLI.HistoryMax); err != nil {
		slog.Warn("history load failed", "path", path, "err", err)
	}

	if err := s.repl(cfg.CLI.Prompt); err != nil {
		fmt.Fprintf(os.Stderr, "readline: %v\n", err)
		return 1
	}
	return 0
}

func preload(db *engine.Database, opts loader.Options, loads loadFlags) error {
	for _, v := range loads {
		name, path, _ := strings.Cut(v, "=")
		tbl, err := loader.LoadFile(path, name, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := db.PutTable(tbl); err != nil {
			return err
		}
	}
	return nil
}

// execer runs one statement, in process or against a server.
type execer interface {
	ExecSQL(sql string) (*executor.Result, error)
}

type session struct {
	db   *engine.Database // nil when connected with -addr
	ex   execer
	hist *History
	out  io.Writer
}

func (s *session) repl(prompt string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer func() { _ = rl.Close() }()

	// preload history into readline so arrow-up works immediately
	for _, line := range s.hist.lines {
		_ = rl.SaveHistory(line)
	}

	fmt.Fprintln(s.out, "novacol: in-memory column store")
	fmt.Fprintln(s.out, "type \\help for help")

	var buf strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			// Ctrl+C clears the current buffer
			if buf.Len() > 0 {
				buf.Reset()
				rl.SetPrompt(prompt)
			}
			continue
		}
		if err != nil {
			// EOF
			fmt.Fprintln(s.out)
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if buf.Len() == 0 && isMetaCommand(line) {
			if s.meta(line) {
				return nil
			}
			continue
		}

		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(line)

		if !statementComplete(buf.String()) {
			rl.SetPrompt("...> ")
			continue
		}

		stmt := strings.TrimSpace(buf.String())
		buf.Reset()
		rl.SetPrompt(prompt)

		if err := s.hist.Append(stmt); err != nil {
			slog.Warn("history append failed", "err", err)
		}
		_ = rl.SaveHistory(compactOneLine(stmt))

		s.exec(stmt)
	}
}

func (s *session) exec(stmt string) {
	res, err := s.ex.ExecSQL(stmt)
	if err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
		return
	}
	printResult(s.out, res)
}

// meta runs a backslash command and reports whether the session should end.
func (s *session) meta(line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "\\q", "quit", "exit":
		return true
	case "\\help":
		fmt.Fprintln(s.out, helpText)
	case "\\history":
		s.hist.Print(s.out, 50)
	case "\\tables":
		s.exec("SHOW TABLES;")
	case "\\arrow":
		s.arrow(arg)
	default:
		fmt.Fprintf(s.out, "unknown command: %s\n", line)
	}
	return false
}

func (s *session) arrow(name string) {
	if name == "" {
		fmt.Fprintln(s.out, "usage: \\arrow <table>")
		return
	}
	if s.db == nil {
		fmt.Fprintln(s.out, "\\arrow needs an in-process database")
		return
	}
	tbl, err := s.db.OpenTable(name)
	if err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
		return
	}
	rec, err := tbl.ToArrow(nil)
	if err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
		return
	}
	defer rec.Release()

	fmt.Fprintln(s.out, rec.Schema())
	fmt.Fprintf(s.out, "(%d rows, %d columns)\n", rec.NumRows(), rec.NumCols())
}

func isMetaCommand(line string) bool {
	return strings.HasPrefix(line, "\\") || line == "quit" || line == "exit"
}

// statementComplete checks for a terminating ';' outside single quotes.
func statementComplete(buf string) bool {
	inQuote := false
	for _, r := range buf {
		switch {
		case r == '\'':
			inQuote = !inQuote
		case r == ';' && !inQuote:
			return true
		}
	}
	return false
}
