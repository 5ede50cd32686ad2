// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the repochat TUI.
//
// The Theme type carries every Lip Gloss style used by the views. Colors are
// adaptive and resolve against the detected terminal background, so a single
// palette serves both light and dark terminals.
package styles
