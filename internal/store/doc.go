// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds the observable client-side state of repochat: the
// session (auth), the repository list with index-status polling (repos), and
// the active chat with optimistic messages (chat).
//
// Stores are mutex-guarded and notify subscribers after every visible state
// change; subscribers run without the store lock held. Asynchronous work in
// the repo and chat stores is guarded against staleness: every load or send
// takes a sequence number, and a continuation only publishes its result when
// its number still matches the store's counter and the selection it was
// started for is still active. Superseded results are discarded silently.
package store
