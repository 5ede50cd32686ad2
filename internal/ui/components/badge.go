// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/jeranaias/repochat-tui/internal/api"
	"github.com/jeranaias/repochat-tui/internal/ui/styles"
)

// StatusBadge renders the indexing status marker shown next to a repository.
// An unknown state renders as queued, the weakest claim we can make.
func StatusBadge(theme *styles.Theme, state *api.IndexState) string {
	if state == nil {
		return theme.BadgeQueued.Render("○ pending")
	}
	switch state.Status {
	case api.IndexProcessing:
		return theme.BadgeProcessing.Render("◐ indexing")
	case api.IndexDone:
		return theme.BadgeDone.Render("● ready")
	case api.IndexFailed:
		return theme.BadgeFailed.Render("✗ failed")
	default:
		return theme.BadgeQueued.Render("○ queued")
	}
}
