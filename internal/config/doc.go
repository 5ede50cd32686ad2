// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for repochat.
//
// Configuration lives in ~/.repochat/config.toml with built-in defaults and
// environment variable overrides (REPOCHAT_API_URL, REPOCHAT_DATA_DIR).
package config
