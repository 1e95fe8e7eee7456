package ice

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Protocol is the scheme of an ICE server URI.
type Protocol string

const (
	ProtocolSTUN  Protocol = "stun"
	ProtocolTURN  Protocol = "turn"
	ProtocolTURNS Protocol = "turns"
)

// Server is a single ICE server entry as handed to a WebRTC peer connection.
// Username and Credential are either both set or both empty, and STUN entries
// never carry them.
type Server struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

func newServer(protocol Protocol, hostPort, username, credential string) Server {
	s := Server{URLs: []string{string(protocol) + ":" + hostPort}}
	if protocol != ProtocolSTUN && username != "" && credential != "" {
		s.Username = username
		s.Credential = credential
	}
	return s
}

// HasCredentials reports whether the entry carries TURN credentials.
func (s Server) HasCredentials() bool {
	return s.Username != "" && s.Credential != ""
}

// Protocol returns the scheme of the first URL.
func (s Server) Protocol() Protocol {
	if len(s.URLs) == 0 {
		return ""
	}
	scheme, _, _ := strings.Cut(s.URLs[0], ":")
	return Protocol(scheme)
}

// IsRelay reports whether the entry is a TURN or TURNS relay.
func (s Server) IsRelay() bool {
	p := s.Protocol()
	return p == ProtocolTURN || p == ProtocolTURNS
}

// Redacted returns a view of the entry that is safe to log.
func (s Server) Redacted() map[string]interface{} {
	view := map[string]interface{}{
		"urls":            s.URLs,
		"has_credentials": s.HasCredentials(),
	}
	if s.HasCredentials() {
		view["username"] = s.Username
		view["credential_fp"] = fingerprint(s.Credential)
	}
	return view
}

func fingerprint(secret string) string {
	sum := blake2b.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:4])
}

func clone(servers []Server) []Server {
	out := make([]Server, len(servers))
	for i, s := range servers {
		out[i] = Server{
			URLs:       append([]string(nil), s.URLs...),
			Username:   s.Username,
			Credential: s.Credential,
		}
	}
	return out
}

// Clone returns a deep copy of servers.
func Clone(servers []Server) []Server {
	return clone(servers)
}
