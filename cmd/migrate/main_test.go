package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommand(t *testing.T) {
	for _, name := range []string{"up", "down", "status"} {
		run, err := command(name)
		assert.NoError(t, err, name)
		assert.NotNil(t, run, name)
	}
	_, err := command("redo")
	assert.ErrorContains(t, err, "unknown command")
}
