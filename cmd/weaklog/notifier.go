package main

import (
	"fmt"

	"github.com/fatih/color"
)

// colorNotifier renders workflow messages on the terminal.
type colorNotifier struct {
	info    *color.Color
	success *color.Color
	failure *color.Color
}

func newColorNotifier() *colorNotifier {
	return &colorNotifier{
		info:    color.New(color.FgCyan),
		success: color.New(color.FgGreen),
		failure: color.New(color.FgRed, color.Bold),
	}
}

func (n *colorNotifier) Info(msg string)    { n.info.Println(msg) }
func (n *colorNotifier) Success(msg string) { n.success.Println("✓ " + msg) }
func (n *colorNotifier) Failure(msg string) { fmt.Println(n.failure.Sprint("✗ ") + msg) }
