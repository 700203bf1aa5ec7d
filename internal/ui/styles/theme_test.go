// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"

	"github.com/muesli/termenv"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"dark", ModeDark},
		{" Light ", ModeLight},
		{"auto", ModeAuto},
		{"", ModeAuto},
		{"neon", ModeAuto},
	}
	for _, tt := range tests {
		if got := ParseMode(tt.in); got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewTheme_ForcedModes(t *testing.T) {
	dark := NewTheme(ModeDark)
	if !dark.IsDark {
		t.Error("ModeDark theme should be dark")
	}
	if dark.CodeStyle() != "monokai" {
		t.Errorf("CodeStyle() = %q, want monokai", dark.CodeStyle())
	}

	light := NewTheme(ModeLight)
	if light.IsDark {
		t.Error("ModeLight theme should be light")
	}
	if light.CodeStyle() != "github" {
		t.Errorf("CodeStyle() = %q, want github", light.CodeStyle())
	}
}

func TestGlamourStyle(t *testing.T) {
	th := &Theme{IsDark: true, ColorProfile: termenv.TrueColor}
	if got := th.GlamourStyle(); got != "dark" {
		t.Errorf("GlamourStyle() = %q, want dark", got)
	}
	th.IsDark = false
	if got := th.GlamourStyle(); got != "light" {
		t.Errorf("GlamourStyle() = %q, want light", got)
	}
	th.ColorProfile = termenv.Ascii
	if got := th.GlamourStyle(); got != "notty" {
		t.Errorf("GlamourStyle() = %q, want notty", got)
	}
}

func TestRenderIndicators(t *testing.T) {
	if got := RenderError("Failed to send message"); !strings.Contains(got, StatusIndicators.Error) {
		t.Errorf("RenderError missing indicator: %q", got)
	}
	if got := RenderSuccess("Conversation deleted"); !strings.Contains(got, "Conversation deleted") {
		t.Errorf("RenderSuccess missing text: %q", got)
	}
}
