// Package feedback provides spoken, tonal and haptic feedback. Everything
// here is fire-and-forget: feedback must never block or fail a command.
package feedback

import (
	"log/slog"
	"os/exec"
	"strings"
)

// Announcer speaks text to the user.
type Announcer interface {
	Announce(text string)
}

// CommandAnnouncer speaks by running a local text-to-speech command
// (espeak-ng by default) with the text as the final argument.
type CommandAnnouncer struct {
	command string
	args    []string
	logger  *slog.Logger
}

// NewCommandAnnouncer creates an announcer shelling out to a TTS command.
// command is split on whitespace; extra tokens become leading arguments.
func NewCommandAnnouncer(command string, logger *slog.Logger) *CommandAnnouncer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	fields := strings.Fields(command)
	if len(fields) == 0 {
		fields = []string{"espeak-ng", "-v", "es"}
	}
	return &CommandAnnouncer{
		command: fields[0],
		args:    fields[1:],
		logger:  logger,
	}
}

// Available reports whether the TTS command can be found.
func (a *CommandAnnouncer) Available() bool {
	_, err := exec.LookPath(a.command)
	return err == nil
}

// Announce speaks the text asynchronously, swallowing errors.
func (a *CommandAnnouncer) Announce(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	args := append(append([]string(nil), a.args...), text)
	cmd := exec.Command(a.command, args...)
	go func() {
		if err := cmd.Run(); err != nil {
			a.logger.Debug("announce failed", "error", err)
		}
	}()
}

// LogAnnouncer writes announcements to the log. It is the fallback when no
// TTS command is available.
type LogAnnouncer struct {
	Logger *slog.Logger
}

// Announce logs the text.
func (a LogAnnouncer) Announce(text string) {
	if a.Logger != nil {
		a.Logger.Info("announce", "text", text)
	}
}
