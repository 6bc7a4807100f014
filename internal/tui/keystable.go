// Package tui provides the `goostr keys` interactive identity browser: a
// bubbles/table model driven by bubbletea, styled with lipgloss.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nostr-mcp/goostr/internal/keystore"
)

type keysModel struct {
	table  table.Model
	keys   []keystore.KeyEntry
	active string
	err    error
}

func newKeysModel(keys []keystore.KeyEntry, active string) keysModel {
	columns := []table.Column{
		{Title: "Label", Width: 16},
		{Title: "Public Key", Width: 64},
		{Title: "Created", Width: 20},
		{Title: "Active", Width: 6},
	}

	rows := make([]table.Row, 0, len(keys))
	for _, k := range keys {
		marker := ""
		if k.Label == active {
			marker = "*"
		}
		rows = append(rows, table.Row{
			k.Label,
			k.PublicKey,
			time.Unix(k.CreatedAt, 0).UTC().Format(time.RFC3339),
			marker,
		})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	t.SetStyles(newTableStyles())

	return keysModel{table: t, keys: keys, active: active}
}

func newTableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	return s
}

func (m keysModel) Init() tea.Cmd { return nil }

func (m keysModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "up", "k":
			m.table.MoveUp(1)
		case "down", "j":
			m.table.MoveDown(1)
		}
	case tea.WindowSizeMsg:
		width := msg.Width - 4
		if width < 20 {
			width = 20
		}
		m.table.SetWidth(width)
	}
	return m, nil
}

func (m keysModel) View() string {
	if len(m.keys) == 0 {
		return "No identities stored yet. Press q to exit."
	}
	return fmt.Sprintf(
		"Stored identities (↑/↓ to browse, q to quit)\n\n%s\n\n%s current active identity\n",
		m.table.View(),
		"*",
	)
}

// RunKeysTable renders an interactive table of every identity in ks.
func RunKeysTable(ks *keystore.KeyStore) error {
	keys := ks.List()
	active := ks.ActiveLabel()

	if len(keys) == 0 {
		fmt.Println("No identities stored yet.")
		return nil
	}

	program := tea.NewProgram(newKeysModel(keys, active))
	_, err := program.Run()
	return err
}
