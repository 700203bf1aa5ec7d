// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"time"

	"github.com/jeranaias/ragchat-tui/internal/model"
)

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// cloneMessages copies msgs so the fake backend never shares pointers with
// the store.
func cloneMessages(msgs []*model.Message) []*model.Message {
	if msgs == nil {
		return nil
	}
	out := make([]*model.Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}
