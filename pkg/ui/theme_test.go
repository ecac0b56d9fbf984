package ui

import (
	"testing"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/agglo/pkg/figure"
)

func TestDefaultTheme(t *testing.T) {
	renderer := lipgloss.NewRenderer(nil)
	theme := DefaultTheme(renderer)

	if theme.Renderer != renderer {
		t.Error("DefaultTheme renderer mismatch")
	}
	for name, c := range map[string]lipgloss.AdaptiveColor{
		"Primary": theme.Primary,
		"Accent":  theme.Accent,
		"Border":  theme.Border,
	} {
		if c.Light == "" || c.Dark == "" {
			t.Errorf("DefaultTheme %s color is empty", name)
		}
	}
}

func TestWithDarkMode(t *testing.T) {
	theme := DefaultTheme(lipgloss.NewRenderer(nil))
	if !theme.WithDarkMode(true).Dark {
		t.Error("WithDarkMode(true) should report a dark background")
	}
	if theme.WithDarkMode(false).Dark {
		t.Error("WithDarkMode(false) should report a light background")
	}
}

func TestColorProfile_Detection(t *testing.T) {
	valid := map[colorprofile.Profile]bool{
		colorprofile.Unknown:   true,
		colorprofile.NoTTY:     true,
		colorprofile.ASCII:     true,
		colorprofile.ANSI:      true,
		colorprofile.ANSI256:   true,
		colorprofile.TrueColor: true,
	}
	if !valid[TermProfile] {
		t.Errorf("TermProfile has unexpected value: %d", TermProfile)
	}
}

func withProfile(t *testing.T, p colorprofile.Profile) {
	t.Helper()
	saved := TermProfile
	TermProfile = p
	t.Cleanup(func() { TermProfile = saved })
}

func TestThemeBg(t *testing.T) {
	tests := []struct {
		profile colorprofile.Profile
		noColor bool
	}{
		{colorprofile.TrueColor, false},
		{colorprofile.ANSI256, true},
		{colorprofile.ANSI, true},
	}
	for _, tt := range tests {
		withProfile(t, tt.profile)
		_, isNone := ThemeBg("#282A36").(lipgloss.NoColor)
		if isNone != tt.noColor {
			t.Errorf("profile %v: ThemeBg NoColor = %v, want %v", tt.profile, isNone, tt.noColor)
		}
	}
}

func TestThemeFg(t *testing.T) {
	withProfile(t, colorprofile.ANSI256)
	if _, ok := ThemeFg("#FF6B6B").(lipgloss.ANSIColor); ok {
		t.Error("ThemeFg should return hex color in ANSI256 mode")
	}

	withProfile(t, colorprofile.NoTTY)
	c, ok := ThemeFg("#FF6B6B").(lipgloss.ANSIColor)
	if !ok || c != 7 {
		t.Errorf("ThemeFg should return ANSI white below ANSI256, got %v", c)
	}
}

func TestRampColor(t *testing.T) {
	dark := figure.RGB{R: 165, G: 15, B: 21}
	light := figure.RGB{R: 252, G: 187, B: 161}

	withProfile(t, colorprofile.TrueColor)
	if got, ok := RampColor(dark).(lipgloss.Color); !ok || string(got) != "#a50f15" {
		t.Errorf("RampColor TrueColor = %v", RampColor(dark))
	}

	withProfile(t, colorprofile.ANSI)
	if RampColor(dark) != lipgloss.ANSIColor(9) {
		t.Errorf("dark ramp color = %v, want bright red", RampColor(dark))
	}
	if RampColor(light) != lipgloss.ANSIColor(1) {
		t.Errorf("light ramp color = %v, want red", RampColor(light))
	}
}

func TestStatusColors(t *testing.T) {
	withProfile(t, colorprofile.ANSI)
	fg, bg := statusColors(true, true)
	if fg != lipgloss.ANSIColor(7) {
		t.Errorf("fg = %v, want ANSI white", fg)
	}
	if _, ok := bg.(lipgloss.NoColor); !ok {
		t.Errorf("bg = %T, want NoColor", bg)
	}

	withProfile(t, colorprofile.TrueColor)
	okFg, _ := statusColors(false, false)
	errFg, _ := statusColors(true, false)
	if okFg == errFg {
		t.Error("success and error footers should differ")
	}
}
