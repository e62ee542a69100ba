package store

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func TestTokenRoundTrip(t *testing.T) {
	key := map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: "eurusd"},
		"sk": &types.AttributeValueMemberS{Value: "price.spot__fx__eurusd__global__2025-05-14__official__0.0.0__1"},
	}

	token, err := encodeToken(key)
	if err != nil {
		t.Fatalf("encodeToken: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	decoded, err := decodeToken(token)
	if err != nil {
		t.Fatalf("decodeToken: %v", err)
	}
	for name, want := range key {
		got, ok := decoded[name].(*types.AttributeValueMemberS)
		if !ok {
			t.Fatalf("attribute %q missing or not a string", name)
		}
		if got.Value != want.(*types.AttributeValueMemberS).Value {
			t.Errorf("attribute %q = %q, want %q", name, got.Value, want.(*types.AttributeValueMemberS).Value)
		}
	}
}

func TestEncodeTokenRejectsNonStringKey(t *testing.T) {
	_, err := encodeToken(map[string]types.AttributeValue{
		"version": &types.AttributeValueMemberN{Value: "3"},
	})
	if err == nil {
		t.Fatal("expected error for non-string key attribute")
	}
}

func TestDecodeTokenRejectsGarbage(t *testing.T) {
	for _, token := range []string{"%%%", "bm90IGpzb24"} {
		if _, err := decodeToken(token); err == nil {
			t.Errorf("decodeToken(%q) succeeded, want error", token)
		}
	}
}

func TestTypeKey(t *testing.T) {
	if got := typeKey("Price.Spot", "FX"); got != "price.spot#fx" {
		t.Errorf("typeKey = %q", got)
	}
}
