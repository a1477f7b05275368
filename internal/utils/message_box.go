package utils

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// MessageType selects the colour and marker of a message box
type MessageType int

const (
	// InfoMessage is neutral
	InfoMessage MessageType = iota
	// SuccessMessage reports a completed run
	SuccessMessage
	// WarningMessage reports something the user should look at
	WarningMessage
	// ErrorMessage reports a failed run
	ErrorMessage
)

var (
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("178"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// Box is a builder for rounded message boxes
type Box struct {
	messageType MessageType
	title       string
	lines       []string
	width       int
}

// NewBox creates a message box sized to the terminal
func NewBox(messageType MessageType, title string) *Box {
	return &Box{
		messageType: messageType,
		title:       title,
		width:       terminalWidth() - 8,
	}
}

// WithWidth caps the box width
func (b *Box) WithWidth(width int) *Box {
	b.width = width
	return b
}

// AddLine adds a line of content
func (b *Box) AddLine(text string) *Box {
	b.lines = append(b.lines, text)
	return b
}

// AddBullet adds a bulleted line of content
func (b *Box) AddBullet(text string) *Box {
	b.lines = append(b.lines, "• "+text)
	return b
}

// Render returns the box as a string
func (b *Box) Render() string {
	color, marker := b.look()

	body := []string{color.Bold(true).Render(marker + " " + b.title)}
	body = append(body, b.lines...)

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color.GetForeground()).
		Padding(0, 1)

	content := strings.Join(body, "\n")
	if b.width > 4 && lipgloss.Width(content)+4 > b.width {
		box = box.Width(b.width - 2)
	}
	return box.Render(content)
}

func (b *Box) look() (lipgloss.Style, string) {
	switch b.messageType {
	case SuccessMessage:
		return successStyle, "✓"
	case WarningMessage:
		return warningStyle, "⚠"
	case ErrorMessage:
		return errorStyle, "✗"
	default:
		return infoStyle, "ℹ"
	}
}

// Info renders an informational box
func Info(title string, lines ...string) string {
	return render(InfoMessage, title, lines)
}

// Success renders a success box
func Success(title string, lines ...string) string {
	return render(SuccessMessage, title, lines)
}

// Warning renders a warning box
func Warning(title string, lines ...string) string {
	return render(WarningMessage, title, lines)
}

// Error renders an error box
func Error(title string, lines ...string) string {
	return render(ErrorMessage, title, lines)
}

func render(messageType MessageType, title string, lines []string) string {
	box := NewBox(messageType, title)
	for _, line := range lines {
		box.AddLine(line)
	}
	return box.Render()
}

// terminalWidth returns the width of stdout, or 80 when it is not a terminal
func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}
