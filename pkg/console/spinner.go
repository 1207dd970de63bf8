package console

import (
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/wasm-slim/wasm-slim/pkg/styles"
	"github.com/wasm-slim/wasm-slim/pkg/tty"
)

// Spinner shows an animated progress indicator on stderr while a slow
// operation runs. When stderr is not a terminal (or accessible mode is on)
// it degrades to a single static progress line per message.
type Spinner struct {
	mu       sync.Mutex
	message  string
	animated bool
	running  bool
	program  *tea.Program
	done     chan struct{}
}

type spinnerModel struct {
	spinner spinner.Model
	message string
}

type spinnerSetMessage string

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case spinnerSetMessage:
		m.message = string(msg)
		return m, nil
	case tea.QuitMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m spinnerModel) View() string {
	return m.spinner.View() + " " + m.message
}

// NewSpinner creates a spinner with an initial message. Call Start to begin
// animating.
func NewSpinner(message string) *Spinner {
	return &Spinner{
		message:  message,
		animated: tty.IsStderrTerminal() && !IsAccessibleMode(),
	}
}

// Start begins the animation, or prints a static progress line when the
// terminal cannot animate.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true

	if !s.animated {
		fmt.Fprintln(os.Stderr, FormatProgressMessage(s.message))
		return
	}

	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(styles.Info),
	)
	s.program = tea.NewProgram(
		spinnerModel{spinner: sp, message: s.message},
		tea.WithOutput(os.Stderr),
		tea.WithInput(nil),
	)
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		_, _ = s.program.Run()
	}()
}

// UpdateMessage replaces the displayed message while the spinner runs.
func (s *Spinner) UpdateMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.message = message
	if !s.running {
		return
	}
	if s.animated {
		s.program.Send(spinnerSetMessage(message))
		return
	}
	fmt.Fprintln(os.Stderr, FormatProgressMessage(message))
}

// Stop halts the animation and clears the spinner line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// StopWithMessage stops the spinner and prints a final status line in its
// place.
func (s *Spinner) StopWithMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	fmt.Fprintln(os.Stderr, message)
}

func (s *Spinner) stopLocked() {
	if !s.running {
		return
	}
	s.running = false

	if s.animated && s.program != nil {
		s.program.Quit()
		<-s.done
		s.program = nil
		ClearLine()
	}
}
