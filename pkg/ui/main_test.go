package ui

import (
	"os"
	"testing"

	"github.com/charmbracelet/colorprofile"
)

func TestMain(m *testing.M) {
	// Render tests assert on plain text; pin the profile so the output does
	// not depend on the terminal running the tests.
	TermProfile = colorprofile.ANSI256
	os.Exit(m.Run())
}
