// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - argument parsing and command dispatch for repochat.
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota // default: launch the chat TUI
	CmdLogin
	CmdRegister
	CmdLogout
	CmdStatus
	CmdRepos
	CmdIndex
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	Command Command

	// Global flags
	ConfigPath string
	APIURL     string
	JSON       bool

	// Command-specific
	Email   string
	RepoURL string
	Branch  string
}

// ParseArgs parses os.Args-style arguments (without the program name).
func ParseArgs(argv []string) (*Args, error) {
	args := &Args{Command: CmdTUI}

	i := 0
	for i < len(argv) {
		arg := argv[i]
		switch {
		case arg == "--config":
			i++
			if i >= len(argv) {
				return nil, fmt.Errorf("--config requires a path")
			}
			args.ConfigPath = argv[i]
		case arg == "--api-url":
			i++
			if i >= len(argv) {
				return nil, fmt.Errorf("--api-url requires a URL")
			}
			args.APIURL = argv[i]
		case arg == "--json":
			args.JSON = true
		case arg == "--help" || arg == "-h":
			args.Command = CmdHelp
			return args, nil
		case arg == "--version" || arg == "-v":
			args.Command = CmdVersion
			return args, nil
		case strings.HasPrefix(arg, "-"):
			return nil, fmt.Errorf("unknown flag: %s", arg)
		default:
			return parseCommand(args, argv[i:])
		}
		i++
	}
	return args, nil
}

func parseCommand(args *Args, rest []string) (*Args, error) {
	switch rest[0] {
	case "login":
		args.Command = CmdLogin
		if len(rest) > 1 {
			args.Email = rest[1]
		}
	case "register":
		args.Command = CmdRegister
		if len(rest) > 1 {
			args.Email = rest[1]
		}
	case "logout":
		args.Command = CmdLogout
	case "status":
		args.Command = CmdStatus
	case "repos":
		args.Command = CmdRepos
	case "index":
		args.Command = CmdIndex
		if len(rest) < 2 {
			return nil, fmt.Errorf("index requires a repository URL")
		}
		args.RepoURL = rest[1]
		if len(rest) > 2 {
			args.Branch = rest[2]
		}
	case "version":
		args.Command = CmdVersion
	case "help":
		args.Command = CmdHelp
	default:
		return nil, fmt.Errorf("unknown command: %s", rest[0])
	}
	return args, nil
}

const usageText = `repochat - chat with your codebase

Usage:
  repochat [flags]                 launch the TUI
  repochat login [email]           sign in
  repochat register [email]        create an account
  repochat logout                  drop the local session
  repochat status                  show session and backend status
  repochat repos [--json]          list repositories and index states
  repochat index <url> [branch]    submit a repository for indexing
  repochat version                 print version

Flags:
  --config <path>   config file (default ~/.repochat/config.toml)
  --api-url <url>   override the backend base URL
  --json            machine-readable output where supported
`

// PrintHelp writes command usage to stdout.
func PrintHelp() {
	fmt.Print(usageText)
}

// PrintVersion writes build information to stdout.
func PrintVersion() {
	fmt.Printf("repochat %s (%s, built %s)\n", Version, GitCommit, BuildDate)
}

// Fatal prints an error and exits non-zero.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
