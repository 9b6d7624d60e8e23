package genai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), "", "m", "i")
	assert.Error(t, err)
}
