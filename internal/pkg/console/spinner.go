package console

import (
	"github.com/briandowns/spinner"
)

const charSet = 14

// Spinner shows that a question is being answered.
type Spinner struct {
	spinner *spinner.Spinner
}

// NewSpinner creates a new spinner with the given message.
func NewSpinner(message string, opts ...Option) *Spinner {
	o := optionsWithDefaults(opts)

	s := spinner.New(spinner.CharSets[charSet], o.interval, spinner.WithWriter(o.writer))
	s.Suffix = " " + message

	return &Spinner{spinner: s}
}

// Start starts the spinner animation.
func (s *Spinner) Start() {
	s.spinner.Start()
}

// Stop stops the spinner animation and clears the line.
func (s *Spinner) Stop() {
	s.spinner.Stop()
}

// UpdateMessage updates the spinner's message.
func (s *Spinner) UpdateMessage(message string) {
	s.spinner.Lock()
	s.spinner.Suffix = " " + message
	s.spinner.Unlock()
}

// Active reports whether the spinner is running.
func (s *Spinner) Active() bool {
	return s.spinner.Active()
}
