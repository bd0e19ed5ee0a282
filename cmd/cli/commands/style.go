package commands

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f"))
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#e3b341"))
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f85149"))
	okStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3fb950"))
)

func printBanner(w io.Writer) {
	banner := `
__     __    _          ____  _   _    _
\ \   / /__ (_) ___ ___|  _ \| \ | |  / \
 \ \ / / _ \| |/ __/ _ \ | | |  \| | / _ \
  \ V / (_) | | (_|  __/ |_| | |\  |/ ___ \
   \_/ \___/|_|\___\___|____/|_| \_/_/   \_\
`
	fmt.Fprintln(w, titleStyle.Render(banner))
	fmt.Fprintln(w, dimStyle.Render("           Voice Conversion CLI Tool"))
	fmt.Fprintln(w)
}

func field(w io.Writer, label string, value any) {
	fmt.Fprintf(w, "%s %v\n", labelStyle.Render(fmt.Sprintf("%-12s", label+":")), value)
}
