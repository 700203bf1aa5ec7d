// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the line-oriented ragchat commands.
package cli

import (
	"fmt"
	"io"
	"runtime"
)

// Build information, set with -ldflags at release time.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// ShowVersion prints build information.
func ShowVersion(out io.Writer, jsonMode bool) error {
	data := VersionData{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if jsonMode {
		return NewJSONResponse("version", data).Write(out)
	}
	fmt.Fprintf(out, "ragchat %s\n", data.Version)
	fmt.Fprintln(out, RenderLabel("Commit")+data.GitCommit)
	fmt.Fprintln(out, RenderLabel("Built")+data.BuildDate)
	fmt.Fprintln(out, RenderLabel("Go")+data.GoVersion)
	fmt.Fprintln(out, RenderLabel("Platform")+data.Platform)
	return nil
}
