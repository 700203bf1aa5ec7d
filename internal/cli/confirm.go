// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the line-oriented ragchat commands.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrConfirmationRequired is returned when a prompt cannot be answered.
var ErrConfirmationRequired = errors.New("confirmation required; pass --yes to skip the prompt")

// Confirm asks question on out and reads a y/N answer from in. An empty
// answer means no. A nil reader or EOF without an answer is an error.
func Confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	if in == nil {
		return false, ErrConfirmationRequired
	}
	fmt.Fprintf(out, "%s [y/N]: ", question)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		fmt.Fprintln(out)
		return false, ErrConfirmationRequired
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
