package protocol_test

import (
	"testing"

	"breedcraft.ai/internal/protocol"
)

func TestValidateHello(t *testing.T) {
	ok := `{"type":"HELLO","protocol_version":"1.0","player_name":"alice_1"}`
	if err := protocol.ValidateHello([]byte(ok)); err != nil {
		t.Fatalf("valid hello rejected: %v", err)
	}
	for _, bad := range []string{
		`{"type":"HELLO","protocol_version":"1.0"}`,
		`{"type":"HELLO","protocol_version":"1.0","player_name":"has space"}`,
		`{"type":"UI","protocol_version":"1.0","player_name":"alice"}`,
		`not json`,
	} {
		if err := protocol.ValidateHello([]byte(bad)); err == nil {
			t.Fatalf("expected rejection: %s", bad)
		}
	}
}

func TestValidateUIRequest(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		ok   bool
	}{
		{"view", `{"type":"UI","protocol_version":"1.0","req_id":"r1","action":"VIEW","enclosure":[0,64,0]}`, true},
		{"select", `{"type":"UI","protocol_version":"1.0","req_id":"r2","action":"SELECT_PARENT","enclosure":[1,2,3],"record_id":"6ba7b810-9dad-11d1-80b4-00c04fd430c8"}`, true},
		{"select without record", `{"type":"UI","protocol_version":"1.0","req_id":"r3","action":"SELECT_PARENT","enclosure":[1,2,3]}`, false},
		{"bad record id", `{"type":"UI","protocol_version":"1.0","req_id":"r4","action":"COLLECT_EGG","enclosure":[1,2,3],"record_id":"nope"}`, false},
		{"unknown action", `{"type":"UI","protocol_version":"1.0","req_id":"r5","action":"BREED_NOW","enclosure":[1,2,3]}`, false},
		{"short enclosure", `{"type":"UI","protocol_version":"1.0","req_id":"r6","action":"VIEW","enclosure":[1,2]}`, false},
		{"fractional enclosure", `{"type":"UI","protocol_version":"1.0","req_id":"r7","action":"VIEW","enclosure":[1,2.5,3]}`, false},
	}
	for _, tc := range cases {
		err := protocol.ValidateUIRequest([]byte(tc.raw))
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}
