package types

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// User-friendly address layout: tag(1) | workchain(1) | hash(32) | crc16(2).
const (
	friendlyAddressLen        = 36
	friendlyAddressEncodedLen = 48

	tagBounceable    = 0x11
	tagNonBounceable = 0x51
	tagTestOnly      = 0x80
)

// Address identifies an account: a workchain id and a 256-bit account hash.
type Address struct {
	Workchain int8
	Hash      Hash
}

// String returns the raw "<workchain>:<hex>" form.
func (a Address) String() string {
	return strconv.Itoa(int(a.Workchain)) + ":" + a.Hash.String()
}

// Key returns a fixed-width binary key for the address (workchain byte then hash).
func (a Address) Key() []byte {
	k := make([]byte, 1+HashSize)
	k[0] = byte(a.Workchain)
	copy(k[1:], a.Hash[:])
	return k
}

// Friendly renders the 48-character base64url user-friendly form.
func (a Address) Friendly(bounceable, testOnly bool) string {
	buf := make([]byte, friendlyAddressLen)
	buf[0] = tagNonBounceable
	if bounceable {
		buf[0] = tagBounceable
	}
	if testOnly {
		buf[0] |= tagTestOnly
	}
	buf[1] = byte(a.Workchain)
	copy(buf[2:34], a.Hash[:])
	binary.BigEndian.PutUint16(buf[34:], crc16(buf[:34]))
	return base64.URLEncoding.EncodeToString(buf)
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress parses either the raw "<workchain>:<64 hex>" form or the
// 48-character user-friendly base64 (standard or url alphabet) form.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Address{}, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	if strings.Contains(s, ":") {
		return parseRawAddress(s)
	}
	return parseFriendlyAddress(s)
}

func parseRawAddress(s string) (Address, error) {
	wcPart, hashPart, _ := strings.Cut(s, ":")
	wc, err := strconv.ParseInt(wcPart, 10, 8)
	if err != nil {
		return Address{}, fmt.Errorf("%w: bad workchain %q", ErrInvalidAddress, wcPart)
	}
	if len(hashPart) != 2*HashSize {
		return Address{}, fmt.Errorf("%w: account id must be %d hex characters", ErrInvalidAddress, 2*HashSize)
	}
	raw, err := hex.DecodeString(hashPart)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	addr := Address{Workchain: int8(wc)}
	copy(addr.Hash[:], raw)
	return addr, nil
}

func parseFriendlyAddress(s string) (Address, error) {
	if len(s) != friendlyAddressEncodedLen {
		return Address{}, fmt.Errorf("%w: expected %d characters, got %d", ErrInvalidAddress, friendlyAddressEncodedLen, len(s))
	}
	enc := base64.URLEncoding
	if strings.ContainsAny(s, "+/") {
		enc = base64.StdEncoding
	}
	buf, err := enc.DecodeString(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(buf) != friendlyAddressLen {
		return Address{}, fmt.Errorf("%w: decoded length %d", ErrInvalidAddress, len(buf))
	}
	switch buf[0] &^ tagTestOnly {
	case tagBounceable, tagNonBounceable:
	default:
		return Address{}, fmt.Errorf("%w: unknown tag 0x%02x", ErrInvalidAddress, buf[0])
	}
	if want, got := crc16(buf[:34]), binary.BigEndian.Uint16(buf[34:]); want != got {
		return Address{}, fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
	}
	addr := Address{Workchain: int8(buf[1])}
	copy(addr.Hash[:], buf[2:34])
	return addr, nil
}

// crc16 computes CRC-16/XMODEM (poly 0x1021, init 0).
func crc16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
