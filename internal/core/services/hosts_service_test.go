package services_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irgordon/laraprov/internal/core/services"
)

func TestHostsService_RegisterAppendsOnce(t *testing.T) {
	hosts := filepath.Join(t.TempDir(), "hosts")
	writeFile(hosts, "127.0.0.1 localhost\n")

	runner := &localRunner{}
	svc := services.NewHostsService(runner, hosts, "test", discardLogger())

	changed, err := svc.Register(context.Background(), "shop")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = svc.Register(context.Background(), "shop")
	require.NoError(t, err)
	assert.False(t, changed)

	got, _ := os.ReadFile(hosts)
	assert.Equal(t, "127.0.0.1 localhost\n127.0.0.1 shop.test\n", string(got))
	require.Len(t, runner.calls, 1)
	assert.True(t, runner.calls[0].Privileged)
}

func TestHostsService_ValuesArePositional(t *testing.T) {
	hosts := filepath.Join(t.TempDir(), "hosts")
	writeFile(hosts, "")

	runner := &localRunner{}
	svc := services.NewHostsService(runner, hosts, "test", discardLogger())

	_, err := svc.Register(context.Background(), "x; rm -rf /")
	require.NoError(t, err)

	argv := runner.calls[0].Argv
	assert.Equal(t, []string{"sh", "-c"}, argv[:2])
	assert.NotContains(t, argv[2], "rm -rf")
	assert.Equal(t, "127.0.0.1 x; rm -rf /.test", argv[4])
	assert.Equal(t, hosts, argv[5])
}

func TestHostsService_MissingTrailingNewline(t *testing.T) {
	hosts := filepath.Join(t.TempDir(), "hosts")
	writeFile(hosts, "127.0.0.1 localhost")

	svc := services.NewHostsService(&localRunner{}, hosts, "test", discardLogger())
	_, err := svc.Register(context.Background(), "blog")
	require.NoError(t, err)

	got, _ := os.ReadFile(hosts)
	assert.Equal(t, "127.0.0.1 localhost\n127.0.0.1 blog.test\n", string(got))
}

func TestHostsService_UnreadableFile(t *testing.T) {
	svc := services.NewHostsService(&localRunner{}, filepath.Join(t.TempDir(), "nope"), "test", discardLogger())

	_, err := svc.Register(context.Background(), "blog")
	assert.Error(t, err)
}
