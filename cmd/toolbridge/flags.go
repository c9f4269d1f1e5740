package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

type stringSlice []string

func (s *stringSlice) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSlice) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type cliArgs struct {
	cfgPath   string
	overrides stringSlice
	resume    string
	last      bool
	workdir   string
	system    string
	noSave    bool
	prompt    string
}

func parseArgs(name string, args []string, stderr io.Writer) (cliArgs, error) {
	var cli cliArgs
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cli.cfgPath, "config", "", "config file (default ~/.toolbridge/config.toml)")
	fs.Var(&cli.overrides, "c", "config override key=value (repeatable)")
	fs.StringVar(&cli.resume, "resume", "", "resume the session with this id")
	fs.BoolVar(&cli.last, "last", false, "resume the most recent session")
	fs.StringVar(&cli.workdir, "workdir", "", "working directory exposed to file tools (default: current directory)")
	fs.StringVar(&cli.system, "system", "", "system prompt for new sessions (default: TOOLBRIDGE.md files)")
	fs.BoolVar(&cli.noSave, "no-save", false, "do not persist the transcript")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: %s [flags] <prompt>\n", name)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return cli, err
	}
	cli.prompt = strings.TrimSpace(strings.Join(fs.Args(), " "))
	if cli.resume != "" && cli.last {
		return cli, fmt.Errorf("-resume and -last are mutually exclusive")
	}
	return cli, nil
}
