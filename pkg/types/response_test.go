package types

import (
	"encoding/json"
	"testing"
)

func TestErrorEnvelopeOmitsEmptyDetails(t *testing.T) {
	out, err := json.Marshal(ErrorEnvelope{Error: APIError{Code: "NOT_FOUND", Message: "Unable to find centreA"}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"error":{"code":"NOT_FOUND","message":"Unable to find centreA"}}` {
		t.Fatalf("unexpected body %s", out)
	}
}
