package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/hbagdi/hitstub/pkg/cmd"
	"github.com/hbagdi/hitstub/pkg/db"
	"github.com/hbagdi/hitstub/pkg/test/util"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestMain(m *testing.M) {
	var code int
	dir, err := os.MkdirTemp("", "hitstub-core-")
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = os.RemoveAll(dir)
		os.Exit(code)
	}()
	if err := os.Setenv(db.EnvPath, filepath.Join(dir, "core.db")); err != nil {
		panic(err)
	}
	color.NoColor = true
	code = m.Run()
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := util.NewStdCapture()
	defer c.Cleanup()
	err := cmd.Run(context.Background(), append([]string{"test-binary-name"}, args...)...)
	c.Stop()
	return string(c.Stdout()), err
}

func TestPreview(t *testing.T) {
	t.Run("json body and its schedule", func(t *testing.T) {
		out, err := run(t, "preview", "@users")
		require.NoError(t, err)
		require.Contains(t, out, "@users\nHTTP/1.1 201 Created\n"+
			"Content-Type: application/json\nX-Stub: users\n")
		require.Contains(t, out, `"name": "alice"`)
		require.Contains(t, out, "bytes: 43\ntransfer: 20ms\nlast byte: 30ms\n")
		require.Contains(t, out, "#0 +")
		require.Contains(t, out, "#5 +30ms 3 bytes\n")
	})
	t.Run("dump", func(t *testing.T) {
		out, err := run(t, "preview", "@dumped")
		require.NoError(t, err)
		require.Contains(t, out, "HTTP/1.1 404 Not Found\n")
		require.Contains(t, out, "X-Trace: abc\n")
	})
	t.Run("simulated error", func(t *testing.T) {
		out, err := run(t, "preview", "@offline")
		require.NoError(t, err)
		require.Contains(t, out, "error: not connected to the internet\n")
		require.Contains(t, out, "last byte: 5ms\n#0 +5ms 0 bytes\n")
	})
	t.Run("unknown stub", func(t *testing.T) {
		_, err := run(t, "preview", "@nope")
		require.EqualError(t, err, "stub 'nope' not found")
	})
	t.Run("stub without '@'", func(t *testing.T) {
		_, err := run(t, "preview", "users")
		require.EqualError(t, err, "stub must begin with '@' character")
	})
}

func TestPlay(t *testing.T) {
	t.Run("body is written to stdout", func(t *testing.T) {
		out, err := run(t, "play", "@users")
		require.NoError(t, err)
		require.Equal(t, `{"users":[{"name":"alice"},{"name":"bob"}]}`, out)
		require.Equal(t, "bob", gjson.Get(out, "users.1.name").String())
	})
	t.Run("'@id' is a shorthand for play", func(t *testing.T) {
		out, err := run(t, "@teapot")
		require.NoError(t, err)
		require.Equal(t, "short and stout", out)
	})
	t.Run("dump", func(t *testing.T) {
		out, err := run(t, "@dumped")
		require.NoError(t, err)
		require.Equal(t, `{"message":"not found"}`, out)
	})
	t.Run("simulated error writes nothing", func(t *testing.T) {
		out, err := run(t, "play", "@offline")
		require.NoError(t, err)
		require.Empty(t, out)
	})
	t.Run("last delivery", func(t *testing.T) {
		out, err := run(t, "last", "@dumped")
		require.NoError(t, err)
		require.Contains(t, out, "HTTP/1.1 404 Not Found\n")
		require.Contains(t, out, `"message": "not found"`)
		require.Contains(t, out, "3 chunks")
	})
	t.Run("value from the last delivery", func(t *testing.T) {
		out, err := run(t, "last", "@users.users.1.name")
		require.NoError(t, err)
		require.Equal(t, "bob\n", out)
	})
	t.Run("never delivered", func(t *testing.T) {
		_, err := run(t, "last", "@nope")
		require.EqualError(t, err, "no delivery of '@nope' recorded")
	})
	t.Run("history", func(t *testing.T) {
		out, err := run(t, "history")
		require.NoError(t, err)
		require.Contains(t, out, " @users 201 Created ")
		require.Contains(t, out, " @teapot 418 I'm a teapot ")
		require.Contains(t, out, " @offline error: not connected to the internet ")

		out, err = run(t, "history", "1")
		require.NoError(t, err)
		require.Contains(t, out, " @offline ")
		require.NotContains(t, out, " @users ")

		_, err = run(t, "history", "zero")
		require.EqualError(t, err, "invalid history size 'zero'")
	})
}

func TestUsage(t *testing.T) {
	_, err := run(t)
	require.Error(t, err)
	require.Contains(t, err.Error(), "need a command to execute")

	_, err = run(t, "frobnicate")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown command 'frobnicate'")

	_, err = run(t, "play")
	require.EqualError(t, err, "'play' needs exactly one stub, e.g. 'play @id'")

	out, err := run(t, "help")
	require.NoError(t, err)
	require.Contains(t, out, "usage: hitstub <command>")
}
