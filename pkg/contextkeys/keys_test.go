package contextkeys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/platinummonkey/tasklist/pkg/auth"
)

func TestClaims(t *testing.T) {
	_, ok := GetClaims(context.Background())
	assert.False(t, ok)

	ctx := WithClaims(context.Background(), nil)
	_, ok = GetClaims(ctx)
	assert.False(t, ok, "nil claims are treated as absent")

	claims := &auth.ClaimSet{Subject: "u-1"}
	got, ok := GetClaims(WithClaims(context.Background(), claims))
	assert.True(t, ok)
	assert.Same(t, claims, got)
}

func TestIdentity(t *testing.T) {
	_, ok := GetIdentity(context.Background())
	assert.False(t, ok)

	identity := &auth.Identity{ID: "u-1"}
	got, ok := GetIdentity(WithIdentity(context.Background(), identity))
	assert.True(t, ok)
	assert.Same(t, identity, got)
}
