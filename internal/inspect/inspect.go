// Package inspect is the interactive detection inspector: pick a board, watch
// the auto-detection cascade report each step live, and browse the postings
// it finds.
package inspect

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dchernopolskiy/Flare-sub001/internal/detect"
	"github.com/dchernopolskiy/Flare-sub001/internal/model"
)

var (
	stepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Padding(0, 0, 0, 2)

	resultHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Padding(1, 0, 0, 2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Padding(1, 0, 0, 2)

	jobTitleStyle = lipgloss.NewStyle().
			Bold(true)

	jobSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(1, 0, 0, 2)
)

const detectTimeout = 2 * time.Minute

type statusMsg string

type detectDoneMsg struct {
	result *detect.Result
	err    error
}

type inspectModel struct {
	board    model.Board
	detector *detect.Detector
	params   model.FetchParams

	statusCh chan string
	steps    []string
	spinner  spinner.Model
	viewport viewport.Model

	result *detect.Result
	err    error
	done   bool
	ready  bool
	width  int
	height int
}

func newInspectModel(board model.Board, detector *detect.Detector, params model.FetchParams) inspectModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	return inspectModel{
		board:    board,
		detector: detector,
		params:   params,
		statusCh: make(chan string, 16),
		spinner:  sp,
	}
}

func (m inspectModel) Init() tea.Cmd {
	return tea.Batch(m.runDetect(), m.listenStatus(), m.spinner.Tick)
}

// runDetect drives the cascade in the background, streaming step reports
// through statusCh before closing it and delivering the final result.
func (m inspectModel) runDetect() tea.Cmd {
	board, detector, params, ch := m.board, m.detector, m.params, m.statusCh
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), detectTimeout)
		defer cancel()

		res, err := detector.Detect(ctx, board.URL, params, func(s string) {
			select {
			case ch <- s:
			default:
			}
		})
		close(ch)
		return detectDoneMsg{result: res, err: err}
	}
}

func (m inspectModel) listenStatus() tea.Cmd {
	ch := m.statusCh
	return func() tea.Msg {
		if s, ok := <-ch; ok {
			return statusMsg(s)
		}
		return nil
	}
}

func (m inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport = viewport.New(msg.Width-4, max(msg.Height-10, 5))
		m.ready = true
		if m.done {
			m.viewport.SetContent(m.renderJobs())
		}
		return m, nil

	case statusMsg:
		m.steps = append(m.steps, string(msg))
		return m, m.listenStatus()

	case detectDoneMsg:
		m.done = true
		m.result = msg.result
		m.err = msg.err
		if m.ready {
			m.viewport.SetContent(m.renderJobs())
		}
		return m, nil

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
		if m.done && m.ready {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m inspectModel) View() string {
	var sb strings.Builder

	title := fmt.Sprintf("Inspecting %s — %s", m.board.Name, m.board.URL)
	sb.WriteString(resultHeaderStyle.Render(title) + "\n\n")

	for _, step := range m.steps {
		sb.WriteString(stepStyle.Render("• "+step) + "\n")
	}

	switch {
	case !m.done:
		sb.WriteString(stepStyle.Render(m.spinner.View()+" running detection cascade...") + "\n")
	case m.err != nil:
		sb.WriteString(errorStyle.Render("detection failed: "+m.err.Error()) + "\n")
	default:
		summary := fmt.Sprintf("method: %s", m.result.Method)
		if m.result.ATSType != "" {
			summary += fmt.Sprintf("  ats: %s (%s)", m.result.ATSType, m.result.ATSURL)
		}
		summary += fmt.Sprintf("  jobs: %d", len(m.result.Jobs))
		sb.WriteString(resultHeaderStyle.Render(summary) + "\n")
		if m.ready {
			sb.WriteString(m.viewport.View() + "\n")
		}
	}

	sb.WriteString(hintStyle.Render("↑/↓ scroll  q quit"))
	return sb.String()
}

func (m inspectModel) renderJobs() string {
	if m.result == nil || len(m.result.Jobs) == 0 {
		return stepStyle.Render("no jobs found")
	}

	var sb strings.Builder
	for _, j := range m.result.Jobs {
		sb.WriteString(jobTitleStyle.Render(j.Title) + "\n")
		sub := j.Location
		if j.WorkSite != "" {
			sub += " · " + j.WorkSite
		}
		if j.URL != "" {
			sub += " · " + j.URL
		}
		sb.WriteString(jobSubtitleStyle.Render(strings.TrimPrefix(sub, " · ")) + "\n\n")
	}
	return sb.String()
}

// Run launches the inspector for one board and blocks until the user quits.
func Run(board model.Board, detector *detect.Detector, params model.FetchParams) error {
	p := tea.NewProgram(newInspectModel(board, detector, params))
	_, err := p.Run()
	return err
}
