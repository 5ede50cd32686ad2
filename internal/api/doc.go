// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the HTTP client for the repochat backend services
// (auth, repos, ingestion, chats) behind the API gateway.
//
// The client attaches the bearer token from the auth cache to every request
// and transparently recovers from a single 401 by running one de-duplicated
// token refresh and retrying the original request once. Requests that fail
// with 401 on the login or refresh endpoints themselves, or after the one
// retry, clear the cached session and fire the registered unauthorized
// callback.
package api
