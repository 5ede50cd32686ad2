// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the non-interactive commands: login, logout,
// status, repository listing, and index submission. The default invocation
// with no command launches the TUI.
package cli
