// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/jeranaias/repochat-tui/internal/store"
)

// RunLogin signs the user in from the terminal. The password is read with
// echo disabled.
func RunLogin(ctx context.Context, auth *store.AuthStore, email string, register bool) error {
	var err error
	if email == "" {
		email, err = promptLine("Email: ")
		if err != nil {
			return err
		}
	}
	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}

	if register {
		err = auth.Register(ctx, email, password)
	} else {
		err = auth.Login(ctx, email, password)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Signed in as %s\n", auth.Email())
	return nil
}

// RunLogout drops the local session.
func RunLogout(auth *store.AuthStore) error {
	auth.Logout()
	fmt.Println("Signed out.")
	return nil
}

func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(raw), nil
}
