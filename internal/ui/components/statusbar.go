// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/jeranaias/repochat-tui/internal/ui/styles"
	"github.com/jeranaias/repochat-tui/internal/util"
)

// Shortcut is one key hint shown in the status bar.
type Shortcut struct {
	Key  string
	Desc string
}

// StatusBar renders the bottom bar: account on the left, key hints on the
// right, padded to the full width.
func StatusBar(theme *styles.Theme, account string, shortcuts []Shortcut, width int) string {
	hints := make([]string, 0, len(shortcuts))
	for _, s := range shortcuts {
		hints = append(hints, theme.ShortcutKey.Render(s.Key)+" "+theme.ShortcutDesc.Render(s.Desc))
	}
	right := strings.Join(hints, "  ")

	left := util.TruncateWidth(account, width/3)
	return theme.StatusBar.Width(width).Render(left + "  " + right)
}
