package merchantcontext

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
)

func TestMerchantIDRoundTrip(t *testing.T) {
	ctx := WithMerchantID(context.Background(), 42)
	id, ok := MerchantIDFromContext(ctx)
	if !ok || id != snowflake.ID(42) {
		t.Fatalf("expected merchant 42, got %d (ok=%v)", id, ok)
	}
}

func TestMerchantIDMissing(t *testing.T) {
	if _, ok := MerchantIDFromContext(context.Background()); ok {
		t.Fatalf("expected no merchant in empty context")
	}
	if _, ok := MerchantIDFromContext(WithMerchantID(context.Background(), 0)); ok {
		t.Fatalf("expected zero merchant to be rejected")
	}
}
