// Command toolbridge sends one prompt to a chat model, runs the local tools
// it asks for and prints the final reply.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"toolbridge/internal/agent"
	"toolbridge/internal/config"
	"toolbridge/internal/execution"
	"toolbridge/internal/instructions"
	"toolbridge/internal/logger"
	"toolbridge/internal/session"
	"toolbridge/internal/tools"
	"toolbridge/internal/tools/handlers"
)

var log = logger.Named("cli")

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cli, err := parseArgs("toolbridge", args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}

	logger.Configure()
	if logFile, _, err := logger.SetupFile(logger.DefaultLogPath); err != nil {
		fmt.Fprintf(stderr, "failed to initialize log file: %v\n", err)
	} else {
		defer logFile.Close()
	}
	if toolsCloser, _, err := tools.SetupToolsLog(tools.DefaultToolsLogPath); err != nil {
		log.Warnf("failed to initialize tools log (%s): %v", tools.DefaultToolsLogPath, err)
	} else if toolsCloser != nil {
		defer tools.CloseToolsLog()
	}
	if entry, closer, _, err := logger.SetupComponentFile("llm", logger.DefaultConversationLogPath); err != nil {
		log.Warnf("failed to initialize conversation log (%s): %v", logger.DefaultConversationLogPath, err)
	} else {
		logger.SetGlobalLLMLogger(logger.NewLLMLoggerFromEntry(entry))
		defer closer.Close()
	}

	cfg, err := config.Load(cli.cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}
	cfg = config.ApplyKVOverrides(cfg, cli.overrides)
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		log.Warnf("ignoring log_level %q: %v", cfg.LogLevel, err)
	}

	prompt := cli.prompt
	if prompt == "" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			fmt.Fprintf(stderr, "read prompt: %v\n", err)
			return 1
		}
		prompt = strings.TrimSpace(string(data))
	}
	if prompt == "" {
		fmt.Fprintln(stderr, "empty prompt")
		return 2
	}

	workdir := cli.workdir
	if workdir == "" {
		if wd, err := os.Getwd(); err == nil {
			workdir = wd
		}
	}

	store, err := session.DefaultStore()
	if err != nil {
		fmt.Fprintf(stderr, "resolve session store: %v\n", err)
		return 1
	}
	rec, err := resumeRecord(store, cli)
	if err != nil {
		fmt.Fprintf(stderr, "resume session: %v\n", err)
		return 1
	}
	if rec.ID == "" {
		rec.ID = session.NewID()
	}
	if rec.Workdir == "" {
		rec.Workdir = workdir
	}
	rec.Model = cfg.Model

	system := cli.system
	if system == "" {
		system = instructions.Discover(rec.Workdir)
	}

	client, err := newModelClient(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "create model client: %v\n", err)
		return 1
	}
	registry, err := tools.NewRegistry(handlers.Default()...)
	if err != nil {
		fmt.Fprintf(stderr, "build tool registry: %v\n", err)
		return 1
	}

	r := renderer{out: stdout}
	dispatcher := tools.NewDispatcher(registry, tools.Options{
		MaxParallel: cfg.MaxParallelTools,
		Timeout:     cfg.ToolTimeout(),
		CancelGrace: cfg.CancelGrace(),
		Observer:    r.toolEvent,
	})
	engine, err := execution.NewEngine(execution.Options{
		Client:     client,
		Dispatcher: dispatcher,
		Env: &tools.Env{
			SessionID: rec.ID,
			Workdir:   rec.Workdir,
			Log:       logger.Named("tools").WithField("session", rec.ID),
		},
		Model:          cfg.Model,
		System:         system,
		MaxRounds:      cfg.MaxRounds,
		Retries:        cfg.Retries,
		RequestTimeout: cfg.RequestTimeout(),
	})
	if err != nil {
		fmt.Fprintf(stderr, "create engine: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithField("session", rec.ID).Infof("turn start provider=%s model=%s tools=%d", cfg.Provider, cfg.Model, registry.Len())
	res, runErr := engine.Run(ctx, rec.Messages, prompt)
	rec.Messages = append(rec.Messages, res.Messages...)

	if !cli.noSave {
		if _, err := store.Save(rec); err != nil {
			log.Warnf("failed to save session %s: %v", rec.ID, err)
		}
	}
	if runErr != nil {
		fmt.Fprintln(stderr, errStyle.Render(runErr.Error()))
		if agent.IsRetryable(runErr) {
			fmt.Fprintln(stderr, dimStyle.Render("the provider failure looks transient; retry with -resume "+rec.ID))
		}
		return 1
	}

	r.reply(res.Final)
	if !cli.noSave {
		r.session(rec.ID)
	}
	return 0
}

func resumeRecord(store session.Store, cli cliArgs) (session.Record, error) {
	switch {
	case cli.resume != "":
		return store.Load(cli.resume)
	case cli.last:
		return store.Last()
	default:
		return session.Record{}, nil
	}
}
