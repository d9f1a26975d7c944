// Package config holds the room server's tunables: YAML on disk layered over
// built-in presets.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MRamiBalles/SalaTrece/server/internal/domain/clock"
	"github.com/MRamiBalles/SalaTrece/server/internal/domain/grid"
	"github.com/MRamiBalles/SalaTrece/server/internal/domain/snake"
)

const (
	EnvConfigPath = "TRECE_CONFIG"
	EnvDebug      = "TRECE_DEBUG"
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	RoomID      string `yaml:"room_id"`
	ListenAddr  string `yaml:"listen_addr"`
	DBPath      string `yaml:"db_path"`
	ArchiveDir  string `yaml:"archive_dir"`
	FrameRateHz int    `yaml:"frame_rate_hz"`
	// Seed 0 seeds from the wall clock.
	Seed int64 `yaml:"seed"`

	Timer     Timer     `yaml:"timer"`
	Lightwall Lightwall `yaml:"lightwall"`
	Snake     Snake     `yaml:"snake"`
	Network   Network   `yaml:"network"`
}

type Timer struct {
	ClockCount          int     `yaml:"clock_count"`
	BaseSeconds         float64 `yaml:"base_seconds"`
	StepSeconds         float64 `yaml:"step_seconds"`
	MaxJitterSeconds    float64 `yaml:"max_jitter_seconds"`
	TargetSeconds       int     `yaml:"target_seconds"`
	FailThreshold       int     `yaml:"fail_threshold"`
	NearDeadlineSeconds int     `yaml:"near_deadline_seconds"`
}

type Lightwall struct {
	CorrectButtons int `yaml:"correct_buttons"`
	ResetButtons   int `yaml:"reset_buttons"`
}

type Snake struct {
	Width         int `yaml:"width"`
	Height        int `yaml:"height"`
	GoalLength    int `yaml:"goal_length"`
	TickMs        int `yaml:"tick_ms"`
	SpawnAttempts int `yaml:"spawn_attempts"`
}

type Network struct {
	InboxBuffer          int `yaml:"inbox_buffer"`
	ClientSendBuffer     int `yaml:"client_send_buffer"`
	PersistBuffer        int `yaml:"persist_buffer"`
	MaxMessagesPerSecond int `yaml:"max_messages_per_second"`
}

// Default is the production room.
func Default() Config {
	return Config{
		RoomID:      "sala-13",
		ListenAddr:  ":8080",
		DBPath:      "./data/sala13.db",
		ArchiveDir:  "./data/archive",
		FrameRateHz: 60,
		Timer: Timer{
			ClockCount:          13,
			BaseSeconds:         25,
			StepSeconds:         5,
			MaxJitterSeconds:    0.5,
			TargetSeconds:       clock.DefaultTarget,
			FailThreshold:       3,
			NearDeadlineSeconds: clock.DefaultNearDeadline,
		},
		Lightwall: Lightwall{CorrectButtons: 13, ResetButtons: 5},
		Snake:     Snake{Width: 10, Height: 10, GoalLength: 13, TickMs: 400, SpawnAttempts: 64},
		Network: Network{
			InboxBuffer:          256,
			ClientSendBuffer:     64,
			PersistBuffer:        1024,
			MaxMessagesPerSecond: 20,
		},
	}
}

// Debug shortens the room for development: four clocks and a three-segment
// snake goal.
func Debug() Config {
	c := Default()
	c.Timer.ClockCount = 4
	c.Snake.GoalLength = 3
	c.DBPath = "./data/sala13-debug.db"
	return c
}

// Load reads path over Default.
func Load(path string) (Config, error) {
	return LoadOver(Default(), path)
}

// LoadOver reads path over base; keys absent from the file keep base values.
func LoadOver(base Config, path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, err
	}
	if err := yaml.Unmarshal(raw, &base); err != nil {
		return base, fmt.Errorf("%s: %w", path, err)
	}
	return base, base.Validate()
}

// FromEnv picks the preset from TRECE_DEBUG and layers TRECE_CONFIG on top.
func FromEnv() (Config, error) {
	base := Default()
	if v := os.Getenv(EnvDebug); v == "1" || v == "true" {
		base = Debug()
	}
	if path := os.Getenv(EnvConfigPath); path != "" {
		return LoadOver(base, path)
	}
	return base, base.Validate()
}

func (c Config) Validate() error {
	checks := []struct {
		name string
		v    float64
	}{
		{"frame_rate_hz", float64(c.FrameRateHz)},
		{"timer.target_seconds", float64(c.Timer.TargetSeconds)},
		{"timer.fail_threshold", float64(c.Timer.FailThreshold)},
		{"lightwall.correct_buttons", float64(c.Lightwall.CorrectButtons)},
		{"snake.width", float64(c.Snake.Width)},
		{"snake.height", float64(c.Snake.Height)},
		{"snake.goal_length", float64(c.Snake.GoalLength)},
		{"snake.tick_ms", float64(c.Snake.TickMs)},
		{"network.inbox_buffer", float64(c.Network.InboxBuffer)},
		{"network.client_send_buffer", float64(c.Network.ClientSendBuffer)},
		{"network.max_messages_per_second", float64(c.Network.MaxMessagesPerSecond)},
	}
	for _, ck := range checks {
		if ck.v <= 0 {
			return fmt.Errorf("%s must be positive, got %v: %w", ck.name, ck.v, ErrInvalid)
		}
	}
	if c.Timer.ClockCount < 0 || c.Lightwall.ResetButtons < 0 || c.Timer.BaseSeconds < 0 ||
		c.Timer.StepSeconds < 0 || c.Timer.MaxJitterSeconds < 0 {
		return fmt.Errorf("timer/lightwall counts must not be negative: %w", ErrInvalid)
	}
	if c.RoomID == "" {
		return fmt.Errorf("room_id is empty: %w", ErrInvalid)
	}
	return nil
}

// FrameInterval is the room loop period.
func (c Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FrameRateHz)
}

// SnakeTick is the fixed snake step.
func (c Config) SnakeTick() time.Duration {
	return time.Duration(c.Snake.TickMs) * time.Millisecond
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// ClockConfig converts the timer section for the clock package.
func (c Config) ClockConfig() clock.Config {
	return clock.Config{
		Count:         c.Timer.ClockCount,
		Base:          seconds(c.Timer.BaseSeconds),
		Step:          seconds(c.Timer.StepSeconds),
		MaxJitter:     seconds(c.Timer.MaxJitterSeconds),
		Target:        c.Timer.TargetSeconds,
		FailThreshold: c.Timer.FailThreshold,
		NearDeadline:  c.Timer.NearDeadlineSeconds,
	}
}

// SnakeConfig converts the snake section; the single snake starts centred,
// two segments long, heading up.
func (c Config) SnakeConfig() snake.Config {
	centre := grid.Pos{X: c.Snake.Width / 2, Y: c.Snake.Height / 2}
	return snake.Config{
		Width:         c.Snake.Width,
		Height:        c.Snake.Height,
		GoalLength:    c.Snake.GoalLength,
		SpawnAttempts: c.Snake.SpawnAttempts,
		Spawns:        []snake.Spawn{{Body: []grid.Pos{centre, centre}, Direction: grid.Up}},
	}
}
