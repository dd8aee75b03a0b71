package monitor

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Sampler names accepted by NewSampler.
const (
	SamplerXdotool = "xdotool"
	SamplerNone    = "none"
)

// NewSampler returns the pointer sampler named by name. SamplerNone returns
// a nil sampler, which disables motion polling.
func NewSampler(name string) (PointerSampler, error) {
	switch name {
	case "", SamplerXdotool:
		s, err := NewXdotoolSampler()
		if err != nil {
			return nil, err
		}
		return s, nil
	case SamplerNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown pointer sampler %q", name)
	}
}

// XdotoolSampler reads the pointer position on X11 by running
// `xdotool getmouselocation --shell`.
type XdotoolSampler struct {
	path    string
	timeout time.Duration
}

// NewXdotoolSampler fails if xdotool is not on PATH.
func NewXdotoolSampler() (*XdotoolSampler, error) {
	path, err := exec.LookPath("xdotool")
	if err != nil {
		return nil, fmt.Errorf("xdotool not found: %w", err)
	}
	return &XdotoolSampler{path: path, timeout: 2 * time.Second}, nil
}

func (s *XdotoolSampler) Position(ctx context.Context) (Point, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, s.path, "getmouselocation", "--shell")
	output, err := cmd.Output()
	if err != nil {
		return Point{}, fmt.Errorf("failed to run xdotool: %w", err)
	}
	return ParseMouseLocation(output)
}

// ParseMouseLocation parses the KEY=value lines printed by
// `xdotool getmouselocation --shell`. Only X and Y are required.
func ParseMouseLocation(data []byte) (Point, error) {
	var p Point
	var haveX, haveY bool

	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if !ok || (key != "X" && key != "Y") {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return Point{}, fmt.Errorf("failed to parse xdotool %s=%q: %w", key, value, err)
		}
		if key == "X" {
			p.X, haveX = n, true
		} else {
			p.Y, haveY = n, true
		}
	}
	if err := sc.Err(); err != nil {
		return Point{}, err
	}
	if !haveX || !haveY {
		return Point{}, fmt.Errorf("xdotool output missing X or Y: %q", data)
	}
	return p, nil
}
