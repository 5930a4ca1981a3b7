package protocol

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestRoundTrip(t *testing.T) {
	commands := []Command{
		CommandStart, CommandStop, CommandStatus, CommandToggle,
		CommandSkip, CommandStats, CommandShutdown,
	}

	for _, cmd := range commands {
		t.Run(string(cmd), func(t *testing.T) {
			req := NewRequest(cmd)
			require.NotEmpty(t, req.RequestID)

			var buf bytes.Buffer
			require.NoError(t, WriteMessage(&buf, req))
			assert.True(t, strings.HasSuffix(buf.String(), "\n"))

			decoded, err := ReadRequest(bufio.NewReader(&buf))
			require.NoError(t, err)
			assert.Equal(t, req.RequestID, decoded.RequestID)
			assert.Equal(t, cmd, decoded.Command)
			assert.True(t, decoded.Command.Valid())
		})
	}
}

func TestResponseRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		resp *Response
	}{
		{
			name: "ok with state",
			resp: OKResponse("req-1", &StateData{
				Phase:     "working",
				Remaining: 24 * time.Minute,
				Duration:  25 * time.Minute,
				Percent:   4,
			}),
		},
		{
			name: "ok with stats",
			resp: &Response{
				RequestID: "req-2",
				OK:        true,
				Stats: &StatsData{
					SessionsToday:  3,
					CompletedToday: 2,
					FocusToday:     72 * time.Minute,
					TotalSessions:  41,
				},
			},
		},
		{
			name: "paused state",
			resp: OKResponse("req-3", &StateData{
				Phase:     "on_break",
				Remaining: 90 * time.Second,
				Duration:  5 * time.Minute,
				Paused:    true,
				Percent:   70,
			}),
		},
		{
			name: "error",
			resp: ErrResponse("req-4", ErrAlreadyRunning, "a phase is already running"),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteMessage(&buf, tc.resp))

			decoded, err := ReadResponse(bufio.NewReader(&buf))
			require.NoError(t, err)
			assert.Equal(t, tc.resp, decoded)
		})
	}
}

func TestReadRequestMalformed(t *testing.T) {
	_, err := ReadRequest(bufio.NewReader(strings.NewReader("this is not json\n")))
	assert.Error(t, err)
}

func TestReadRequestMissingTrailingNewline(t *testing.T) {
	req, err := ReadRequest(bufio.NewReader(strings.NewReader(`{"request_id":"x","command":"status"}`)))
	require.NoError(t, err)
	assert.Equal(t, CommandStatus, req.Command)
}

func TestUnknownCommandDecodesButIsInvalid(t *testing.T) {
	req, err := ReadRequest(bufio.NewReader(strings.NewReader(`{"request_id":"x","command":"launch"}` + "\n")))
	require.NoError(t, err)
	assert.False(t, req.Command.Valid())
}

func TestReadResponseEmptyInput(t *testing.T) {
	_, err := ReadResponse(bufio.NewReader(strings.NewReader("")))
	assert.Error(t, err)
}
