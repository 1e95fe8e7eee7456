package ice

import (
	"errors"
	"fmt"

	"github.com/pion/webrtc/v4"
)

// ErrRejectedByWebRTC is returned by CheckPeerConfiguration when pion refuses
// a list that parsed cleanly, for example a non-numeric port.
var ErrRejectedByWebRTC = errors.New("ICE servers rejected by WebRTC stack")

// WebRTC converts the entry to the pion representation.
func (s Server) WebRTC() webrtc.ICEServer {
	out := webrtc.ICEServer{URLs: append([]string(nil), s.URLs...)}
	if s.HasCredentials() {
		out.Username = s.Username
		out.Credential = s.Credential
		out.CredentialType = webrtc.ICECredentialTypePassword
	}
	return out
}

// PeerConfiguration builds a configuration for server-side peer connections,
// keeping the given order. Relays without credentials are skipped since pion
// refuses TURN URLs it cannot authenticate against.
func PeerConfiguration(servers []Server) webrtc.Configuration {
	cfg := webrtc.Configuration{
		ICEServers: make([]webrtc.ICEServer, 0, len(servers)),
	}
	for _, s := range servers {
		if s.IsRelay() && !s.HasCredentials() {
			continue
		}
		cfg.ICEServers = append(cfg.ICEServers, s.WebRTC())
	}
	return cfg
}

// CheckPeerConfiguration builds and immediately closes a peer connection with
// the servers so pion validates every URL before the list is published. No
// network traffic happens since no candidates are gathered.
func CheckPeerConfiguration(servers []Server) error {
	pc, err := webrtc.NewPeerConnection(PeerConfiguration(servers))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRejectedByWebRTC, err)
	}
	return pc.Close()
}
