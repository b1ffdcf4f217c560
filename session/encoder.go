package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

// CurrentSchemaVersion is the first byte of every encoded session.
const CurrentSchemaVersion = 1

var ErrCorruptSession = errors.New("corrupt session record")

// Encode serialises the persisted part of a session:
//
//	version | kind | createdAt(ms) | state fields...
//
// Strings are length-prefixed with one byte. The token is not part of the
// record; it is the record's key.
func Encode(s *Session) ([]byte, error) {
	var buf bytes.Buffer

	state := s.State()
	buf.WriteByte(CurrentSchemaVersion)
	buf.WriteByte(byte(state.Kind()))
	if err := binary.Write(&buf, binary.BigEndian, s.createdAt.UnixMilli()); err != nil {
		return nil, err
	}

	switch st := state.(type) {
	case Anonymous:
	case Authenticated:
		for _, f := range []struct{ name, v string }{
			{"userID", st.UserID},
			{"identity", st.Identity},
			{"email", st.Email},
		} {
			if err := writeString(&buf, f.name, f.v); err != nil {
				return nil, err
			}
		}
		if err := binary.Write(&buf, binary.BigEndian, st.ExpiresAt.UnixMilli()); err != nil {
			return nil, err
		}
	case RecoveryPending:
		if err := writeString(&buf, "email", st.Email); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown session state %T", state)
	}

	return buf.Bytes(), nil
}

// Decode is the inverse of Encode. The returned session has no token.
func Decode(data []byte) (*Session, error) {
	s, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSession, err)
	}
	return s, nil
}

func decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != CurrentSchemaVersion {
		return nil, fmt.Errorf("unsupported session schema version %d", version)
	}

	kind, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	var createdMs int64
	if err := binary.Read(reader, binary.BigEndian, &createdMs); err != nil {
		return nil, err
	}
	s := &Session{createdAt: time.UnixMilli(createdMs)}

	switch Kind(kind) {
	case KindAnonymous:
		s.state = Anonymous{}
	case KindAuthenticated:
		var st Authenticated
		for _, dst := range []*string{&st.UserID, &st.Identity, &st.Email} {
			if *dst, err = readString(reader); err != nil {
				return nil, err
			}
		}
		var expiresMs int64
		if err := binary.Read(reader, binary.BigEndian, &expiresMs); err != nil {
			return nil, err
		}
		st.ExpiresAt = time.UnixMilli(expiresMs)
		if st.UserID == "" {
			return nil, errors.New("authenticated session without user")
		}
		s.state = st
	case KindRecoveryPending:
		var st RecoveryPending
		if st.Email, err = readString(reader); err != nil {
			return nil, err
		}
		if st.Email == "" {
			return nil, errors.New("recovery session without email")
		}
		s.state = st
	default:
		return nil, fmt.Errorf("unknown session kind %d", kind)
	}

	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes")
	}
	return s, nil
}

func writeString(buf *bytes.Buffer, name, v string) error {
	if len(v) > 255 {
		return fmt.Errorf("%s too long", name)
	}
	buf.WriteByte(byte(len(v)))
	buf.WriteString(v)
	return nil
}

func readString(r *bytes.Reader) (string, error) {
	n, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
