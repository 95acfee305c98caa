package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sevigo/canteen-sync/internal/core"
)

var (
	ErrTuningNotFound = errors.New("queue tuning file not found")
	ErrTuningParsing  = errors.New("queue tuning parsing failed")
)

// QueueTuning carries optional per-queue overrides of the job options each
// pipeline ships with.
type QueueTuning struct {
	Queues map[string]TuningEntry `yaml:"queues"`
}

// TuningEntry overrides job options for one queue. Zero fields keep the
// pipeline default.
type TuningEntry struct {
	Attempts         int    `yaml:"attempts"`
	BackoffType      string `yaml:"backoffType"`
	InitialDelayMs   int    `yaml:"initialDelayMs"`
	RemoveOnComplete int    `yaml:"removeOnComplete"`
	RemoveOnFail     int    `yaml:"removeOnFail"`
	TimeoutSeconds   int    `yaml:"timeoutSeconds"`
}

// LoadQueueTuning loads and parses the .canteen-sync.yml override file. A
// missing file is not an error; callers get an empty tuning plus
// ErrTuningNotFound to log if they care.
func LoadQueueTuning(path string) (*QueueTuning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &QueueTuning{}, ErrTuningNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	tuning := &QueueTuning{}
	if err := yaml.Unmarshal(data, tuning); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTuningParsing, err)
	}
	return tuning, nil
}

// Apply overlays the overrides for queueName onto opts.
func (t *QueueTuning) Apply(queueName string, opts core.JobOptions) core.JobOptions {
	if t == nil || t.Queues == nil {
		return opts
	}
	entry, ok := t.Queues[queueName]
	if !ok {
		return opts
	}
	if entry.Attempts > 0 {
		opts.Attempts = entry.Attempts
	}
	if entry.BackoffType != "" {
		opts.Backoff.Type = entry.BackoffType
	}
	if entry.InitialDelayMs > 0 {
		opts.Backoff.InitialDelay = time.Duration(entry.InitialDelayMs) * time.Millisecond
	}
	if entry.RemoveOnComplete > 0 {
		opts.RemoveOnComplete = entry.RemoveOnComplete
	}
	if entry.RemoveOnFail > 0 {
		opts.RemoveOnFail = entry.RemoveOnFail
	}
	if entry.TimeoutSeconds > 0 {
		opts.Timeout = time.Duration(entry.TimeoutSeconds) * time.Second
	}
	return opts
}
