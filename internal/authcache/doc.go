// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package authcache persists the signed-in session (access token, user id,
// email) as a small JSON document under the data directory and notifies
// listeners whenever it changes, including changes made by another repochat
// process watching the same file.
//
// Storage trouble is never fatal: when the data directory cannot be used the
// cache degrades to an in-memory map and the session simply does not survive
// restarts.
package authcache
