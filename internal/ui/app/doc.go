// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app is the Bubble Tea front end: a login screen and the main chat
// view with a repository sidebar. The model owns no domain state; it renders
// snapshots of the auth, repo, and chat stores and turns key presses into
// store operations running as commands.
package app
