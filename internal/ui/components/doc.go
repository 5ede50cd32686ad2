// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides reusable rendering helpers for the TUI views:
// message blocks, the repository sidebar, status badges, and the status bar.
package components
