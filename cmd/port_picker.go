// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/blotctl/pkg/transport"
)

var errPickCancelled = errors.New("no port selected")

// portItem adapts PortInfo to list.Item
type portItem struct {
	info transport.PortInfo
}

func (i portItem) Title() string { return i.info.Name }

func (i portItem) Description() string {
	if !i.info.IsUSB {
		return "serial"
	}
	desc := fmt.Sprintf("USB %s:%s", i.info.VID, i.info.PID)
	if i.info.Product != "" {
		desc += " " + i.info.Product
	}
	return desc
}

func (i portItem) FilterValue() string { return i.info.Name }

type portPickerModel struct {
	list     list.Model
	choice   string
	quitting bool
}

func newPortPickerModel(ports []transport.PortInfo) portPickerModel {
	items := make([]list.Item, len(ports))
	for i, p := range ports {
		items[i] = portItem{info: p}
	}

	l := list.New(items, list.NewDefaultDelegate(), 60, 14)
	l.Title = "Select the Blot serial port"
	l.Styles.Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)
	l.SetShowStatusBar(false)

	return portPickerModel{list: l}
}

func (m portPickerModel) Init() tea.Cmd {
	return nil
}

func (m portPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-1)
		return m, nil

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(portItem); ok {
				m.choice = item.info.Name
			}
			return m, tea.Quit
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m portPickerModel) View() string {
	return m.list.View()
}

// pickPort lists USB serial ports and lets the user choose one
func pickPort() (string, error) {
	ports, err := transport.ListPorts(true)
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		return "", fmt.Errorf("no USB serial ports found: %w", errNoPort)
	}

	final, err := tea.NewProgram(newPortPickerModel(ports)).Run()
	if err != nil {
		return "", fmt.Errorf("port picker failed: %w", err)
	}

	m := final.(portPickerModel)
	if m.quitting || m.choice == "" {
		return "", errPickCancelled
	}
	return m.choice, nil
}
