package session

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestEncodeDecodeEveryState(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	states := []State{
		Anonymous{},
		Authenticated{UserID: "u-1", Identity: "alice", Email: "a@x.com", ExpiresAt: now.Add(2 * time.Hour)},
		RecoveryPending{Email: "a@x.com"},
	}

	for _, st := range states {
		t.Run(st.Kind().String(), func(t *testing.T) {
			sess := &Session{state: st, createdAt: now}
			data, err := Encode(sess)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			if data[0] != CurrentSchemaVersion {
				t.Fatalf("expected version byte %d, got %d", CurrentSchemaVersion, data[0])
			}

			got, err := Decode(data)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !sameState(got.State(), st) {
				t.Fatalf("state mismatch: got %#v want %#v", got.State(), st)
			}
			if !got.CreatedAt().Equal(now) {
				t.Fatalf("createdAt mismatch: got %v want %v", got.CreatedAt(), now)
			}
		})
	}
}

func sameState(a, b State) bool {
	aa, aok := a.(Authenticated)
	ba, bok := b.(Authenticated)
	if aok && bok {
		return aa.UserID == ba.UserID && aa.Identity == ba.Identity &&
			aa.Email == ba.Email && aa.ExpiresAt.Equal(ba.ExpiresAt)
	}
	return a == b
}

func TestDecodeRejectsUnsupportedSchemaVersion(t *testing.T) {
	_, err := Decode([]byte{99})
	if !errors.Is(err, ErrCorruptSession) || !strings.Contains(err.Error(), "unsupported session schema version") {
		t.Fatalf("expected unsupported schema version error, got %v", err)
	}
}

func TestDecodeRejectsAuthenticatedWithoutUser(t *testing.T) {
	sess := &Session{state: Authenticated{Email: "a@x.com", ExpiresAt: time.Now()}, createdAt: time.Now()}
	data, err := Encode(sess)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := Decode(data); !errors.Is(err, ErrCorruptSession) {
		t.Fatalf("expected corrupt session, got %v", err)
	}
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	data, err := Encode(&Session{state: Anonymous{}, createdAt: time.Now()})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := Decode(append(data, 0)); !errors.Is(err, ErrCorruptSession) {
		t.Fatalf("expected corrupt session, got %v", err)
	}
}

func TestEncodeRejectsOversizedField(t *testing.T) {
	sess := &Session{state: RecoveryPending{Email: strings.Repeat("e", 256)}, createdAt: time.Now()}
	if _, err := Encode(sess); err == nil {
		t.Fatal("expected oversized email to be rejected")
	}
}

// FuzzSessionDecode checks the decoder never panics on arbitrary input.
func FuzzSessionDecode(f *testing.F) {
	now := time.UnixMilli(1_700_000_000_000)
	for _, st := range []State{
		Anonymous{},
		Authenticated{UserID: "u", Identity: "i", Email: "e@x", ExpiresAt: now},
		RecoveryPending{Email: "e@x"},
	} {
		if encoded, err := Encode(&Session{state: st, createdAt: now}); err == nil {
			f.Add(encoded)
			f.Add(encoded[:len(encoded)/2])
		}
	}
	f.Add([]byte{})
	f.Add([]byte{1})
	f.Add([]byte{255, 255, 255})

	f.Fuzz(func(t *testing.T, data []byte) {
		s, err := Decode(data)
		if err != nil {
			return
		}
		if _, err := Encode(s); err != nil {
			t.Fatalf("decoded session failed to re-encode: %v", err)
		}
	})
}
