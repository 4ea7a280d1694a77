package cmd

import (
	"context"
	"errors"
	"testing"

	gferrors "github.com/fulmenhq/gofulmen/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenResult(t *testing.T) {
	t.Run("signal handled", func(t *testing.T) {
		called := false
		err := listenResult(context.Background(), nil, func(context.Context) error {
			called = true
			return nil
		})
		assert.NoError(t, err)
		assert.False(t, called, "shutdown already ran inside the signal manager")
	})

	t.Run("parent context canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var shutdownCtx context.Context
		err := listenResult(ctx, ctx.Err(), func(c context.Context) error {
			shutdownCtx = c
			return nil
		})
		require.NoError(t, err)
		require.NotNil(t, shutdownCtx)
		assert.NoError(t, shutdownCtx.Err(), "teardown must not inherit the cancellation")
	})

	t.Run("handler failure", func(t *testing.T) {
		err := listenResult(context.Background(), errors.New("cleanup handler failed"), func(context.Context) error {
			t.Fatal("shutdown must not run twice")
			return nil
		})
		var envelope *gferrors.ErrorEnvelope
		require.ErrorAs(t, err, &envelope)
		assert.Equal(t, "INTERNAL_ERROR", envelope.Code)
	})
}
