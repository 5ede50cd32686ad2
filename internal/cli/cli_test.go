// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"
	"testing"
)

func TestParseArgsDefaultIsTUI(t *testing.T) {
	args, err := ParseArgs(nil)
	if err != nil {
		t.Fatalf("ParseArgs failed: %v", err)
	}
	if args.Command != CmdTUI {
		t.Errorf("Command = %v, want CmdTUI", args.Command)
	}
}

func TestParseArgsCommands(t *testing.T) {
	cases := []struct {
		argv []string
		want Command
	}{
		{[]string{"login"}, CmdLogin},
		{[]string{"login", "u@example.com"}, CmdLogin},
		{[]string{"register"}, CmdRegister},
		{[]string{"logout"}, CmdLogout},
		{[]string{"status"}, CmdStatus},
		{[]string{"repos"}, CmdRepos},
		{[]string{"index", "https://github.com/acme/widgets"}, CmdIndex},
		{[]string{"version"}, CmdVersion},
		{[]string{"--version"}, CmdVersion},
		{[]string{"help"}, CmdHelp},
		{[]string{"-h"}, CmdHelp},
	}
	for _, tc := range cases {
		args, err := ParseArgs(tc.argv)
		if err != nil {
			t.Errorf("ParseArgs(%v) failed: %v", tc.argv, err)
			continue
		}
		if args.Command != tc.want {
			t.Errorf("ParseArgs(%v) = %v, want %v", tc.argv, args.Command, tc.want)
		}
	}
}

func TestParseArgsFlags(t *testing.T) {
	args, err := ParseArgs([]string{"--config", "/tmp/c.toml", "--api-url", "http://localhost:9000", "--json", "repos"})
	if err != nil {
		t.Fatalf("ParseArgs failed: %v", err)
	}
	if args.ConfigPath != "/tmp/c.toml" || args.APIURL != "http://localhost:9000" || !args.JSON {
		t.Errorf("flags not parsed: %+v", args)
	}
	if args.Command != CmdRepos {
		t.Errorf("Command = %v, want CmdRepos", args.Command)
	}
}

func TestParseArgsErrors(t *testing.T) {
	for _, argv := range [][]string{
		{"--config"},
		{"--api-url"},
		{"--bogus"},
		{"unknowncmd"},
		{"index"},
	} {
		if _, err := ParseArgs(argv); err == nil {
			t.Errorf("ParseArgs(%v) succeeded, want error", argv)
		}
	}
}

func TestParseArgsIndexOperands(t *testing.T) {
	args, err := ParseArgs([]string{"index", "https://github.com/acme/widgets", "develop"})
	if err != nil {
		t.Fatalf("ParseArgs failed: %v", err)
	}
	if args.RepoURL != "https://github.com/acme/widgets" || args.Branch != "develop" {
		t.Errorf("operands = (%q, %q)", args.RepoURL, args.Branch)
	}
}

func TestUsageNamesRealConfigPath(t *testing.T) {
	// The flag help must match where config.Load actually looks.
	if !strings.Contains(usageText, "~/.repochat/config.toml") {
		t.Error("usage text does not name ~/.repochat/config.toml")
	}
	if strings.Contains(usageText, "~/.config/repochat") {
		t.Error("usage text names a config path the loader never reads")
	}
}
