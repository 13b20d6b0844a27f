package main

import (
	"bytes"
	"errors"
	"flag"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carewatch/internal/scheduler"
)

func TestParseFlags_ManualByDefault(t *testing.T) {
	opts, err := parseFlags([]string{"--task=alert_check"}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, scheduler.TaskAlertCheck, opts.payload.Task)
	assert.True(t, opts.payload.Manual)
	assert.Nil(t, opts.payload.ReferenceTime)
}

func TestParseFlags_ScheduledWithReferenceTime(t *testing.T) {
	opts, err := parseFlags([]string{
		"--scheduled",
		"--task=anomaly_analysis",
		"--reference-time=2026-03-14T09:30:00Z",
	}, io.Discard)
	require.NoError(t, err)

	assert.False(t, opts.payload.Manual)
	require.NotNil(t, opts.payload.ReferenceTime)
	assert.True(t, opts.payload.ReferenceTime.Equal(time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)))
}

func TestParseFlags_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing task", nil},
		{"unknown task", []string{"--task=purge_everything"}},
		{"bad reference time", []string{"--task=alert_check", "--reference-time=yesterday"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFlags(tt.args, io.Discard)
			assert.ErrorIs(t, err, errUsage)
		})
	}
}

func TestParseFlags_ListNeedsNoTask(t *testing.T) {
	opts, err := parseFlags([]string{"--list"}, io.Discard)
	require.NoError(t, err)
	assert.True(t, opts.list)
}

func TestParseFlags_Help(t *testing.T) {
	var stderr bytes.Buffer
	_, err := parseFlags([]string{"-h"}, &stderr)
	assert.True(t, errors.Is(err, flag.ErrHelp))
	assert.Contains(t, stderr.String(), "Usage: job-runner")
}

func TestPrintAvailableTasks(t *testing.T) {
	var out bytes.Buffer
	printAvailableTasks(&out)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "alert_check")
	assert.Contains(t, lines[2], "anomaly_analysis")
}

func TestPrintJSON_Payload(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printJSON(&out, scheduler.Payload{Task: scheduler.TaskAlertCheck, Manual: true}))

	assert.JSONEq(t, `{"task":"alert_check","manual":true}`, out.String())
}
