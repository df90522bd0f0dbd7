package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	old := Commit
	t.Cleanup(func() { Commit = old })

	Commit = "abc1234"
	assert.Equal(t, Version+" (abc1234)", String())
	assert.Regexp(t, `^\d+\.\d+\.\d+`, Version)
}
