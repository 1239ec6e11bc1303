package filter

import (
	"crypto/sha256"
	"crypto/tls"
	"encoding/binary"
	"encoding/hex"

	"github.com/google/uuid"

	"github.com/Twiddllo/v2ray-healthcheck/internal/model"
)

// probeAfterHandshake pushes a minimal protocol greeting down the fresh TLS
// connection for the protocols where one is cheap to build. Some middleboxes
// complete the handshake and then stall; sending real request bytes flushes
// those out of the connection early. Best effort: the response is not read
// and write errors do not fail the precheck.
func probeAfterHandshake(conn *tls.Conn, cfg *model.ProxyConfig) {
	switch cfg.Protocol {
	case model.ProtocolTrojan:
		conn.Write(trojanGreeting(cfg.Identity))
	case model.ProtocolVLESS:
		if header := vlessGreeting(cfg.Identity); header != nil {
			conn.Write(header)
		}
	}
}

// trojanGreeting is the hex SHA-224 of the password followed by CRLF and a
// CONNECT request for www.google.com:443, per the trojan wire format.
func trojanGreeting(password string) []byte {
	sum := sha256.Sum224([]byte(password))
	hash := hex.EncodeToString(sum[:])

	target := []byte("www.google.com")
	out := make([]byte, 0, len(hash)+2+4+len(target)+2)
	out = append(out, hash...)
	out = append(out, '\r', '\n')
	out = append(out, 0x03, byte(len(target)))
	out = append(out, target...)
	out = binary.BigEndian.AppendUint16(out, 443)
	return out
}

// vlessGreeting is a version-0 VLESS request header addressing
// google.com:80 by domain. Nil when the identity is not a UUID.
func vlessGreeting(identity string) []byte {
	uid, err := uuid.Parse(identity)
	if err != nil {
		return nil
	}

	target := []byte("google.com")
	out := make([]byte, 0, 1+16+2+2+1+len(target)+2)
	out = append(out, 0x00)
	out = append(out, uid[:]...)
	out = append(out, 0x00)       // no addons
	out = append(out, 0x01)       // command: TCP
	out = binary.BigEndian.AppendUint16(out, 80)
	out = append(out, 0x02, byte(len(target)))
	out = append(out, target...)
	return out
}
