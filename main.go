// repochat TUI - chat with an indexed codebase from the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/repochat-tui/internal/api"
	"github.com/jeranaias/repochat-tui/internal/authcache"
	"github.com/jeranaias/repochat-tui/internal/cli"
	"github.com/jeranaias/repochat-tui/internal/config"
	"github.com/jeranaias/repochat-tui/internal/history"
	"github.com/jeranaias/repochat-tui/internal/store"
	"github.com/jeranaias/repochat-tui/internal/ui/app"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

// env holds everything the commands share: config, session cache, HTTP
// client, and the stores built on top.
type env struct {
	cfg   *config.Config
	cache *authcache.Cache
	auth  *store.AuthStore
	repos *store.RepoStore
	chat  *store.ChatStore
	hist  *history.Store
}

func (e *env) close() {
	e.repos.Dispose()
	e.auth.Close()
	if e.hist != nil {
		e.hist.Close()
	}
	e.cache.Close()
}

func bootstrap(args *cli.Args, watch bool) (*env, error) {
	var cfg *config.Config
	var err error
	if args.ConfigPath != "" {
		cfg, err = config.LoadFrom(args.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if args.APIURL != "" {
		cfg.API.BaseURL = args.APIURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cache := authcache.New(cfg.Data.Dir)
	if watch {
		// Sessions started or dropped by another repochat process show up
		// through the cache file watch.
		if err := cache.Watch(); err != nil {
			log.Printf("auth cache watch unavailable: %v", err)
		}
	}

	client := api.NewClient(cfg.API.BaseURL, cache).WithTimeout(cfg.API.Timeout())

	var hist *history.Store
	if cfg.Data.HistoryEnabled {
		hist, err = history.Open(cfg.Data.Dir)
		if err != nil {
			log.Printf("chat history unavailable: %v", err)
		}
	}

	auth := store.NewAuthStore(client, cache)
	repos := store.NewRepoStore(client, auth, cfg.API.PollInterval())

	var dir store.ChatDirectory
	if hist != nil {
		dir = hist
	}
	chat := store.NewChatStore(client, auth, dir, cfg.API.HistoryLimit)

	// A dead session anywhere in the client tears the UI back to login.
	client.SetOnUnauthorized(func() {
		repos.StopPolling()
		chat.Reset()
	})

	return &env{cfg: cfg, cache: cache, auth: auth, repos: repos, chat: chat, hist: hist}, nil
}

func main() {
	args, err := cli.ParseArgs(os.Args[1:])
	if err != nil {
		cli.Fatal(err)
	}

	switch args.Command {
	case cli.CmdHelp:
		cli.PrintHelp()
		return
	case cli.CmdVersion:
		cli.PrintVersion()
		return
	}

	e, err := bootstrap(args, args.Command == cli.CmdTUI)
	if err != nil {
		cli.Fatal(err)
	}
	defer e.close()

	ctx := context.Background()
	switch args.Command {
	case cli.CmdLogin:
		err = cli.RunLogin(ctx, e.auth, args.Email, false)
	case cli.CmdRegister:
		err = cli.RunLogin(ctx, e.auth, args.Email, true)
	case cli.CmdLogout:
		err = cli.RunLogout(e.auth)
	case cli.CmdStatus:
		e.auth.Init(ctx)
		err = cli.RunStatus(e.auth, e.cfg.API.BaseURL)
	case cli.CmdRepos:
		e.auth.Init(ctx)
		err = requireSession(e, func() error {
			return cli.RunRepos(ctx, e.repos, args.JSON)
		})
	case cli.CmdIndex:
		e.auth.Init(ctx)
		err = requireSession(e, func() error {
			return cli.RunIndex(ctx, e.repos, args.RepoURL, args.Branch)
		})
	default:
		// The TUI owns the terminal; route log output to a file instead.
		if f, lerr := tea.LogToFile(filepath.Join(e.cfg.Data.Dir, "repochat.log"), "repochat"); lerr == nil {
			defer f.Close()
		}
		err = app.Run(e.auth, e.repos, e.chat)
	}
	if err != nil {
		cli.Fatal(err)
	}
}

func requireSession(e *env, fn func() error) error {
	if !e.auth.IsAuthenticated() {
		return store.ErrSignedOut
	}
	return fn()
}
