package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestCmd tests command execution, exit codes and cancellation.
func TestCmd(t *testing.T) {
	cmd := &Cmd{}

	out, err := cmd.Run(context.Background(), "sh", "-c", "echo hello; echo oops >&2")
	require.NoError(t, err)
	require.Equal(t, "hello", out.String())
	require.Equal(t, "oops\n", string(out.Stderr))

	out, err = cmd.Run(context.Background(), "sh", "-c", "echo partial; echo broken >&2; exit 3")
	require.Error(t, err)
	require.True(t, IsExitCode(err, 3))
	require.False(t, IsExitCode(err, 1, 2))
	require.True(t, IsExitCode(err))
	require.Equal(t, "partial", out.String())

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	require.Contains(t, exitErr.Error(), "broken")

	//low commandTimeout - fail
	timed := &Cmd{CommandTimeout: 1}
	_, err = timed.Run(context.Background(), "sleep", "3")
	require.Error(t, err)

	_, err = cmd.Run(context.Background(), "/nonexistent/binary")
	require.Error(t, err)
	require.False(t, IsExitCode(err))
}

func TestOutputLines(t *testing.T) {
	out := Output{Stdout: []byte("br-ex\n\n  br-int \nbr-tun\n")}
	require.Equal(t, []string{"br-ex", "br-int", "br-tun"}, out.Lines())
	require.Empty(t, Output{}.Lines())
}

func TestIsExitCodeWrapped(t *testing.T) {
	err := fmt.Errorf("probe failed: %w", &ExitError{Command: "vgs cinder", Code: 5})
	require.True(t, IsExitCode(err, 5))
	require.False(t, IsExitCode(errors.New("plain"), 5))
}

func TestWrapperKeepsPartialLines(t *testing.T) {
	var sink bytes.Buffer
	w := getWrapper("ceph", STDOUT)
	w.useColours = false
	w.logger.SetOutput(&sink)

	_, err := w.Write([]byte("first line\nsecond "))
	require.NoError(t, err)
	require.Equal(t, "ceph\tfirst line\n", sink.String())

	_, err = w.Write([]byte("half\n"))
	require.NoError(t, err)
	require.Equal(t, "ceph\tfirst line\nceph\tsecond half\n", sink.String())
}
