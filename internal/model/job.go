package model

import (
	"fmt"
	"time"
)

type JobState uint8

const (
	StateUnknown JobState = iota
	StatePending
	StateRunning
	StateFinished
	StateFailed
)

func (s JobState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown (%d)", s)
	}
}

// Job is one word-frequency run over a set of inputs.
type Job struct {
	ID         string
	Objects    []string
	State      JobState
	Words      int    // distinct words in the result
	Result     string // object name of the persisted result, empty if not persisted
	Error      string
	StartedAt  int64
	FinishedAt int64
}

func NewJob(id string, objects []string) *Job {
	return &Job{
		ID:      id,
		Objects: objects,
		State:   StatePending,
	}
}

func (j *Job) Start() {
	j.State = StateRunning
	j.StartedAt = time.Now().UnixNano()
}

func (j *Job) Finish(words int, result string) {
	j.State = StateFinished
	j.Words = words
	j.Result = result
	j.FinishedAt = time.Now().UnixNano()
}

func (j *Job) Fail(err error) {
	j.State = StateFailed
	j.Error = err.Error()
	j.FinishedAt = time.Now().UnixNano()
}

func (j *Job) Finished() bool {
	return j.State == StateFinished || j.State == StateFailed
}
