package main

import (
	"fmt"
	"io"
)

const (
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorCyan   = "\033[36m"
	colorReset  = "\033[0m"
)

const banner = `
   _____ ____   _____ _  __ _____   _    _          _____  __      __ ______  _____ _______
  / ____/ __ \ / ____| |/ // ____| | |  | |   /\   |  __ \ \ \    / /|  ____|/ ____|__   __|
 | (___| |  | | |    | ' /| (___   | |__| |  /  \  | |__) | \ \  / / | |__  | (___    | |
  \___ \ |  | | |    |  <  \___ \  |  __  | / /\ \ |  _  /   \ \/ /  |  __|  \___ \   | |
  ____) | |__| | |____| . \ ____) | | |  | |/ ____ \| | \ \    \  /   | |____ ____) |  | |
 |_____/ \____/ \_____|_|\_\_____/  |_|  |_/_/    \_\_|  \_\    \/    |______|_____/   |_|
`

// console prints the user-facing lines; colours are dropped when out is not a terminal.
type console struct {
	out   io.Writer
	color bool
}

func (c console) printf(color, format string, args ...interface{}) {
	if c.color {
		fmt.Fprint(c.out, color)
		fmt.Fprintf(c.out, format, args...)
		fmt.Fprint(c.out, colorReset)
		return
	}
	fmt.Fprintf(c.out, format, args...)
}

func (c console) banner() {
	c.printf(colorGreen, "%s\n", banner)
}
