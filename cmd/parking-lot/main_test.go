package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-ledger/internal/config"
)

func TestSetupRejectsUnknownStoreDriver(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cfg := &config.Config{
		StoreDriver:     "bogus",
		ShutdownTimeout: time.Second,
		OTelConfig: config.OTelConfig{
			ServiceName:  "parking-ledger-test",
			OTLPEndpoint: "http://127.0.0.1:1",
		},
	}

	a, err := setup(ctx, cfg)
	require.Error(t, err)
	assert.Nil(t, a)
	assert.Contains(t, err.Error(), `unknown STORE_DRIVER "bogus"`)
}

func TestSetupWithMemoryStore(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cfg := &config.Config{
		StoreDriver:     "memory",
		ShutdownTimeout: time.Second,
		OTelConfig: config.OTelConfig{
			ServiceName:  "parking-ledger-test",
			OTLPEndpoint: "http://127.0.0.1:1",
		},
	}

	a, err := setup(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, a.service)

	_, err = a.service.CreateLots(ctx, 1, 1)
	require.NoError(t, err)
	a.shutdown()
}
