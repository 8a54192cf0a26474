package trace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, FromContext(ctx))

	ctx = WithContext(ctx, "abc")
	assert.Equal(t, "abc", FromContext(ctx))
}

func TestEnsureKeepsExistingID(t *testing.T) {
	ctx := WithContext(context.Background(), "fixed")
	assert.Equal(t, "fixed", FromContext(Ensure(ctx)))

	generated := FromContext(Ensure(context.Background()))
	assert.Len(t, generated, 32)
}
