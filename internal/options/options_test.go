package options

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type config struct {
	name  string
	count int
}

func TestApply(t *testing.T) {
	cfg := &config{}
	err := Apply(cfg,
		NoError(func(c *config) { c.name = "x" }),
		New(func(c *config) error {
			c.count = 3
			return nil
		}),
	)
	require.NoError(t, err)
	require.Equal(t, "x", cfg.name)
	require.Equal(t, 3, cfg.count)
}

func TestApplyStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	cfg := &config{}
	err := Apply(cfg,
		New(func(*config) error { return boom }),
		NoError(func(c *config) { c.count = 1 }),
	)
	require.ErrorIs(t, err, boom)
	require.Zero(t, cfg.count)
}
