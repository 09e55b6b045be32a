package ui

import (
	"strings"
	"testing"

	"vitrine/internal/notify"
)

func TestDetectTheme(t *testing.T) {
	t.Setenv("COLORFGBG", "")
	t.Setenv(DarkModeEnv, "1")
	dark := DetectTheme()
	if !dark.IsDark {
		t.Fatalf("expected dark theme when %s=1", DarkModeEnv)
	}

	t.Setenv(DarkModeEnv, "")
	light := DetectTheme()
	if light.IsDark {
		t.Fatalf("expected light theme when %s is unset", DarkModeEnv)
	}
}

func TestDetectTheme_ColorFgBg(t *testing.T) {
	t.Setenv(DarkModeEnv, "")
	t.Setenv("COLORFGBG", "15;0")
	if !DetectTheme().IsDark {
		t.Fatal("expected dark theme for black background")
	}
	t.Setenv("COLORFGBG", "0;15")
	if DetectTheme().IsDark {
		t.Fatal("expected light theme for white background")
	}
}

func TestThemeFor(t *testing.T) {
	t.Setenv("COLORFGBG", "")
	t.Setenv(DarkModeEnv, "")
	if !ThemeFor("dark").IsDark {
		t.Error("dark should be dark")
	}
	if ThemeFor(" Light ").IsDark {
		t.Error("light should be light")
	}
	if ThemeFor("auto").IsDark {
		t.Error("auto should fall back to light")
	}
}

func TestNotificationRendersMessage(t *testing.T) {
	s := NewStyles(LightTheme())
	out := s.Notification(notify.Error("Failed to add to cart"))
	if !strings.Contains(out, "Failed to add to cart") {
		t.Fatalf("message missing from %q", out)
	}
}

func TestRenderDivider(t *testing.T) {
	s := NewStyles(LightTheme())
	if got := s.RenderDivider(-3); strings.Contains(got, "─") {
		t.Fatalf("negative width should render nothing, got %q", got)
	}
	if got := s.RenderDivider(4); strings.Count(got, "─") != 4 {
		t.Fatalf("expected 4 rules, got %q", got)
	}
}
