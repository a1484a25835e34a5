package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/papapumpkin/lanes/internal/board"
)

// Semantic color palette.
var (
	colorPrimary     = lipgloss.Color("#00BFFF") // Cyan: primary accent
	colorAccent      = lipgloss.Color("#FFD700") // Gold: attention
	colorSuccess     = lipgloss.Color("#00E676") // Green: done
	colorDanger      = lipgloss.Color("#FF5252") // Red: errors, blocked
	colorMuted       = lipgloss.Color("#636363") // Gray: de-emphasized
	colorMutedLight  = lipgloss.Color("#8C8C8C") // Lighter gray: normal text
	colorBrightWhite = lipgloss.Color("#FFFFFF") // Pure white: emphatic text
	colorSurface     = lipgloss.Color("#1E1E2E") // Dark surface: status bar bg
	colorBlue        = lipgloss.Color("#5B8DEF") // Blue: in progress
	colorViolet      = lipgloss.Color("#B388FF") // Violet: needs feedback
)

// Selection indicator prepended to the active card.
const selectionIndicator = "▎"

// Status icons.
const (
	iconReady    = "·"
	iconWorking  = "◎"
	iconFeedback = "?"
	iconBlocked  = "⊘"
	iconDone     = "✓"
)

var (
	styleColumnHeader = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	styleColumnOverLimit = lipgloss.NewStyle().
				Foreground(colorDanger).
				Bold(true)

	styleColumn = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)

	styleColumnFocused = styleColumn.
				BorderForeground(colorPrimary)

	styleCardSelected = lipgloss.NewStyle().
				Foreground(colorBrightWhite).
				Bold(true)

	styleCardNormal = lipgloss.NewStyle().
			Foreground(colorMutedLight)

	styleCardMeta = lipgloss.NewStyle().
			Foreground(colorMuted)

	styleStatusBar = lipgloss.NewStyle().
			Background(colorSurface).
			Foreground(colorBrightWhite).
			Padding(0, 1)

	styleError = lipgloss.NewStyle().
			Foreground(colorDanger).
			Bold(true)

	styleFooterKey = lipgloss.NewStyle().
			Foreground(colorAccent)

	styleFooterDesc = lipgloss.NewStyle().
			Foreground(colorMutedLight)
)

// statusIcon returns the icon and color for a task status.
func statusIcon(st board.Status) (string, lipgloss.Color) {
	switch st {
	case board.StatusInProgress:
		return iconWorking, colorBlue
	case board.StatusNeedsFeedback:
		return iconFeedback, colorViolet
	case board.StatusBlocked:
		return iconBlocked, colorDanger
	case board.StatusDone:
		return iconDone, colorSuccess
	default:
		return iconReady, colorMutedLight
	}
}
