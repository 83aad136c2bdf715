// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package webhook forwards stored error events to a Discord channel webhook.
package webhook

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/olegiv/avalon/internal/model"
)

// Message limits.
const (
	MaxDescriptionLength = 1900
	MaxStackLength       = 1000
	FooterText           = "Avalon Error Collector"
	truncatedMarker      = "\n... [truncated]"
	noMessageText        = "No error message provided"
)

const defaultColor = 0x808080

var levelColors = map[string]int{
	model.LevelError:    0xFF0000,
	model.LevelWarning:  0xFFA500,
	model.LevelInfo:     0x00BFFF,
	model.LevelDebug:    0x808080,
	model.LevelFatal:    0x8B0000,
	model.LevelCritical: 0xDC143C,
}

var levelEmojis = map[string]string{
	model.LevelError:    "🔴",
	model.LevelWarning:  "🟠",
	model.LevelInfo:     "🔵",
	model.LevelDebug:    "⚪",
	model.LevelFatal:    "💀",
	model.LevelCritical: "🚨",
}

var upper = cases.Upper(language.Und)

// EmbedField is one name/value row of an embed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// EmbedFooter is the small text under an embed.
type EmbedFooter struct {
	Text string `json:"text"`
}

// Embed is a Discord rich embed.
type Embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Fields      []EmbedField `json:"fields"`
	Timestamp   string       `json:"timestamp"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
}

// Message is the body posted to the webhook URL.
type Message struct {
	Embeds []Embed `json:"embeds"`
}

// LevelColor returns the embed colour for a level. Unknown levels are grey.
func LevelColor(level string) int {
	l, _ := model.CanonicalLevel(level)
	if c, ok := levelColors[l]; ok {
		return c
	}
	return defaultColor
}

// LevelEmoji returns the emoji for a level, or a generic warning sign.
func LevelEmoji(level string) string {
	l, _ := model.CanonicalLevel(level)
	if e, ok := levelEmojis[l]; ok {
		return e
	}
	return "⚠️"
}

// BuildMessage renders an error event as a single-embed message.
func BuildMessage(ev model.ErrorEvent) Message {
	emoji := LevelEmoji(ev.Level)
	levelTitle := upper.String(ev.Level)

	fields := []EmbedField{
		{Name: "📦 Service", Value: "`" + ev.Service + "`", Inline: true},
		{Name: "⚠️ Level", Value: emoji + " `" + levelTitle + "`", Inline: true},
		{Name: "🆔 ID", Value: "`" + ev.ID + "`", Inline: true},
	}

	if ev.Path != nil {
		method := "GET"
		if ev.Method != nil {
			method = *ev.Method
		}
		fields = append(fields, EmbedField{Name: "🔗 Path", Value: fmt.Sprintf("`%s %s`", method, *ev.Path)})
	}

	if ev.Stack != nil {
		fields = append(fields, EmbedField{
			Name:  "📜 Stack Trace",
			Value: "```\n" + truncate(*ev.Stack, MaxStackLength) + "\n```",
		})
	}

	description := noMessageText
	if ev.Message != nil {
		description = truncate(*ev.Message, MaxDescriptionLength)
	}

	return Message{Embeds: []Embed{{
		Title:       fmt.Sprintf("%s %s - %s", emoji, levelTitle, ev.Service),
		Description: description,
		Color:       LevelColor(ev.Level),
		Fields:      fields,
		Timestamp:   ev.CreatedAt.UTC().Format(time.RFC3339Nano),
		Footer:      &EmbedFooter{Text: FooterText},
	}}}
}

// truncate cuts s to limit runes and appends a marker when it had to cut.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	var b strings.Builder
	n := 0
	for _, r := range s {
		if n == limit {
			break
		}
		b.WriteRune(r)
		n++
	}
	b.WriteString(truncatedMarker)
	return b.String()
}
