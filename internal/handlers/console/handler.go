// Package console implements the text command surface for effects. The
// Discord handler and the stdin console both go through it.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/KirkDiggler/effect-engine/internal/effects"
	effecterr "github.com/KirkDiggler/effect-engine/internal/errors"
	"github.com/KirkDiggler/effect-engine/internal/services/effect"
)

const helpText = `Commands:
  apply <target> <effect>[:<subId>] <magnitude> <ms|indefinite>
  stack <target> <effect>[:<subId>] <source> <magnitude> <ms|indefinite>
  remove <target> <effect>[:<subId>]
  list <target>
  kinds
  help`

// ApplyRequest is an apply command with its arguments still as typed
type ApplyRequest struct {
	Instigator string
	Target     string
	Effect     string // "<name>" or "<name>:<subId>"
	Magnitude  float64
	Duration   string // milliseconds, a Go duration, or "indefinite"
}

// StackRequest is a stack command
type StackRequest struct {
	Instigator string
	Target     string
	Effect     string
	Source     string
	Magnitude  float64
	Duration   string
}

// RemoveRequest is a remove command
type RemoveRequest struct {
	Instigator string
	Target     string
	Effect     string
}

// Handler answers commands with human readable text. Failures are reported
// in the text; no method returns an error.
type Handler struct {
	service effect.Service
}

// HandlerConfig holds configuration for the console handler
type HandlerConfig struct {
	EffectService effect.Service
}

// NewHandler creates a new console handler
func NewHandler(cfg *HandlerConfig) *Handler {
	if cfg == nil || cfg.EffectService == nil {
		panic("effect service is required")
	}
	return &Handler{service: cfg.EffectService}
}

// Run reads commands line by line from in and writes the replies to out
// until in is exhausted or ctx is done
func (h *Handler) Run(ctx context.Context, instigator string, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if _, err := fmt.Fprintln(out, h.Execute(ctx, instigator, line)); err != nil {
				return err
			}
		}
	}
}

// Execute parses and runs one command line
func (h *Handler) Execute(ctx context.Context, instigator, line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return helpText
	}

	args := fields[1:]
	switch strings.ToLower(fields[0]) {
	case "apply":
		if len(args) != 4 {
			return "Usage: apply <target> <effect>[:<subId>] <magnitude> <ms|indefinite>"
		}
		magnitude, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Sprintf("Invalid magnitude %q", args[2])
		}
		return h.Apply(ctx, &ApplyRequest{
			Instigator: instigator,
			Target:     args[0],
			Effect:     args[1],
			Magnitude:  magnitude,
			Duration:   args[3],
		})

	case "stack":
		if len(args) != 5 {
			return "Usage: stack <target> <effect>[:<subId>] <source> <magnitude> <ms|indefinite>"
		}
		magnitude, err := strconv.ParseFloat(args[3], 64)
		if err != nil {
			return fmt.Sprintf("Invalid magnitude %q", args[3])
		}
		return h.Stack(ctx, &StackRequest{
			Instigator: instigator,
			Target:     args[0],
			Effect:     args[1],
			Source:     args[2],
			Magnitude:  magnitude,
			Duration:   args[4],
		})

	case "remove":
		if len(args) != 2 {
			return "Usage: remove <target> <effect>[:<subId>]"
		}
		return h.Remove(ctx, &RemoveRequest{Instigator: instigator, Target: args[0], Effect: args[1]})

	case "list":
		if len(args) != 1 {
			return "Usage: list <target>"
		}
		return h.List(ctx, args[0])

	case "kinds":
		return h.Kinds()

	case "help":
		return helpText

	default:
		return fmt.Sprintf("Unknown command %q\n%s", fields[0], helpText)
	}
}

// Apply runs an apply command
func (h *Handler) Apply(ctx context.Context, req *ApplyRequest) string {
	name, subID := splitEffect(req.Effect)
	if msg, ok := h.checkKnown(name); !ok {
		return msg
	}

	duration, err := ParseDuration(req.Duration)
	if err != nil {
		return err.Error()
	}

	err = h.service.Apply(ctx, &effect.ApplyInput{
		Instigator: req.Instigator,
		Target:     req.Target,
		Effect:     name,
		SubID:      subID,
		Magnitude:  req.Magnitude,
		Duration:   duration,
	})
	if err != nil {
		return fmt.Sprintf("Failed to apply %s: %v", req.Effect, err)
	}
	return fmt.Sprintf("Applied %s to %s (magnitude %s, duration %s)",
		req.Effect, req.Target, formatFloat(req.Magnitude), formatDuration(duration))
}

// Stack runs a stack command
func (h *Handler) Stack(ctx context.Context, req *StackRequest) string {
	name, subID := splitEffect(req.Effect)
	if msg, ok := h.checkKnown(name); !ok {
		return msg
	}

	duration, err := ParseDuration(req.Duration)
	if err != nil {
		return err.Error()
	}

	owner, err := h.service.Stack(ctx, &effect.StackInput{
		Instigator: req.Instigator,
		Target:     req.Target,
		Effect:     name,
		SubID:      subID,
		Source:     req.Source,
		Magnitude:  req.Magnitude,
		Duration:   duration,
	})
	if err != nil {
		return fmt.Sprintf("Failed to stack %s: %v", req.Effect, err)
	}
	return fmt.Sprintf("Stacked %s on %s from %s (magnitude %s, duration %s)",
		req.Effect, req.Target, owner, formatFloat(req.Magnitude), formatDuration(duration))
}

// Remove runs a remove command
func (h *Handler) Remove(ctx context.Context, req *RemoveRequest) string {
	name, subID := splitEffect(req.Effect)
	if msg, ok := h.checkKnown(name); !ok {
		return msg
	}

	err := h.service.Remove(ctx, &effect.RemoveInput{
		Instigator: req.Instigator,
		Target:     req.Target,
		Effect:     name,
		SubID:      subID,
	})
	if effecterr.IsNotFound(err) {
		return fmt.Sprintf("%s is not active on %s", req.Effect, req.Target)
	}
	if err != nil {
		return fmt.Sprintf("Failed to remove %s: %v", req.Effect, err)
	}
	return fmt.Sprintf("Removed %s from %s", req.Effect, req.Target)
}

// List runs a list command
func (h *Handler) List(ctx context.Context, target string) string {
	states, err := h.service.List(ctx, target)
	if err != nil {
		return fmt.Sprintf("Failed to list effects on %s: %v", target, err)
	}
	if len(states) == 0 {
		return fmt.Sprintf("No active effects on %s", target)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active effects on %s:", target)
	for _, state := range states {
		fmt.Fprintf(&b, "\n  %s magnitude=%s duration=%s",
			state.Key(), formatFloat(state.Magnitude), formatMillis(state.DurationMs))
	}
	return b.String()
}

// Kinds lists the registered effects
func (h *Handler) Kinds() string {
	return "Known effects: " + strings.Join(h.service.Kinds(), ", ")
}

// checkKnown reports unknown effect names before anything runs
func (h *Handler) checkKnown(name string) (string, bool) {
	known := h.service.Kinds()
	for _, k := range known {
		if k == name {
			return "", true
		}
	}
	return fmt.Sprintf("Unknown effect id %q. Known effects: %s", name, strings.Join(known, ", ")), false
}

// ParseDuration accepts milliseconds ("5000"), Go durations ("5s") and
// "indefinite" (or "-1")
func ParseDuration(raw string) (time.Duration, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "indefinite", "inf", "-1":
		return effects.Indefinite, nil
	case "":
		return 0, fmt.Errorf("duration is required")
	}

	if ms, err := strconv.ParseFloat(raw, 64); err == nil {
		if ms < 0 {
			return 0, fmt.Errorf("invalid duration %q", raw)
		}
		return time.Duration(ms * float64(time.Millisecond)), nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	return d, nil
}

func splitEffect(raw string) (name, subID string) {
	name, subID, _ = strings.Cut(raw, ":")
	return name, subID
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatDuration(d time.Duration) string {
	if d == effects.Indefinite {
		return "indefinite"
	}
	return d.String()
}

func formatMillis(ms float64) string {
	if ms < 0 {
		return "indefinite"
	}
	return formatDuration(time.Duration(ms * float64(time.Millisecond)))
}
