package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/sqweek/dialog"
)

// printBanner mirrors the teacher's printBanner: a colored banner shown
// once before an interactive flow starts.
func printBanner() {
	banner := `
 __  __          _ _       _____
|  \/  | ___  __| (_) __ _|  __ \ __ _ _ __ ___  ___ _ __
| |\/| |/ _ \/ _\ | |/ _\ |  |__) / _\ | '__/ __|/ _ \ '__|
| |  | |  __/ (_| | | (_| |  ____/ (_| | |  \__ \  __/ |
|_|  |_|\___|\__,_|_|\__,_|_|    \__,_|_|  |___/\___|_|
`
	color.New(color.FgCyan, color.Bold).Println(banner)
}

// guiAvailable reports whether a display server is present, the same
// DISPLAY/WAYLAND_DISPLAY check the teacher's isGUIAvailable uses.
func guiAvailable() bool {
	return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
}

// promptForDirectory offers a native picker when a display is available,
// falling back to a validated text prompt otherwise — the teacher's
// GUI-then-text-prompt fallback from ui.go, generalized to one directory
// at a time instead of a fixed source/destination pair.
func promptForDirectory(label string) (dir string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("directory picker panicked: %v", r)
		}
	}()

	if guiAvailable() {
		if picked, perr := dialog.Directory().Title(label).Browse(); perr == nil {
			if info, statErr := os.Stat(picked); statErr == nil && info.IsDir() {
				return picked, nil
			}
		}
	}

	prompt := promptui.Prompt{
		Label: label,
		Validate: func(input string) error {
			info, statErr := os.Stat(input)
			if statErr != nil || !info.IsDir() {
				return fmt.Errorf("not a valid directory")
			}
			return nil
		},
	}
	result, perr := prompt.Run()
	if perr == promptui.ErrInterrupt {
		color.New(color.FgRed, color.Bold).Println("\nInterrupted.")
		os.Exit(130)
	}
	return result, perr
}
