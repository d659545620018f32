// Package device turns User-Agent headers into session labels such as "Chrome on macOS".
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

const (
	unknownDevice = "Unknown Device"
	maxNameLength = 120
)

// DisplayName returns a human-readable label for the client sending userAgent.
// Mobile clients are labelled by platform ("Safari on iPhone"), others by OS.
func DisplayName(userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return unknownDevice
	}

	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	if ua.Bot() {
		return truncate(orDefault(browser, "Bot") + " (bot)")
	}

	target := ua.OS()
	if ua.Mobile() && ua.Platform() != "" {
		target = ua.Platform()
	}

	return truncate(orDefault(browser, "Unknown Browser") + " on " + orDefault(target, "Unknown OS"))
}

func orDefault(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}

func truncate(name string) string {
	if len(name) <= maxNameLength {
		return name
	}
	return name[:maxNameLength]
}
