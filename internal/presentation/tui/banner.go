package tui

import (
	"fmt"

	"github.com/muesli/termenv"
)

// PrintBanner outputs an ASCII art banner for adi.
func PrintBanner() {
	p := termenv.ColorProfile()
	// Teal-to-blue gradient.
	s1 := termenv.String("          _ _ ").Foreground(p.Color("#2dd4bf"))
	s2 := termenv.String("  __ _ __| (_)").Foreground(p.Color("#22d3ee"))
	s3 := termenv.String(" / _` / _` | |").Foreground(p.Color("#38bdf8"))
	s4 := termenv.String(" \\__,_\\__,_|_|").Foreground(p.Color("#60a5fa"))

	fmt.Println()
	fmt.Println(s1)
	fmt.Println(s2)
	fmt.Println(s3)
	fmt.Println(s4)
	fmt.Println()
}
