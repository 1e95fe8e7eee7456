package services

import (
	"strings"
	"sync"
	"time"

	"monobase/internal/ice"
	"monobase/pkg/logger"

	"github.com/sirupsen/logrus"
)

// IceService holds the ICE servers handed to call participants. Updates are
// all-or-nothing: a malformed list is rejected and the current one is kept.
type IceService struct {
	mu      sync.RWMutex
	servers []ice.Server
	ttl     time.Duration
	updated time.Time
}

func NewIceService(servers []ice.Server, ttl time.Duration) *IceService {
	s := &IceService{
		servers: ice.Clone(servers),
		ttl:     ttl,
		updated: time.Now(),
	}
	logServers("ICE servers loaded", s.servers)
	return s
}

// Servers returns a copy of the current list.
func (s *IceService) Servers() []ice.Server {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ice.Clone(s.servers)
}

// Update replaces the list with the parsed value of raw. A blank raw resets
// to the public STUN defaults.
func (s *IceService) Update(raw, actor string) ([]ice.Server, error) {
	var (
		servers []ice.Server
		err     error
	)
	if strings.TrimSpace(raw) == "" {
		servers = ice.DefaultServers()
	} else if servers, err = ice.ParseServers(raw); err != nil {
		logger.LogAdminAction(actor, "ice_servers_update_rejected", "ice_servers", map[string]interface{}{
			"reason": "malformed descriptor",
		})
		return nil, err
	}
	if err := ice.CheckPeerConfiguration(servers); err != nil {
		logger.LogAdminAction(actor, "ice_servers_update_rejected", "ice_servers", map[string]interface{}{
			"reason": err.Error(),
		})
		return nil, err
	}

	s.mu.Lock()
	s.servers = servers
	s.updated = time.Now()
	s.mu.Unlock()

	logger.LogAdminAction(actor, "ice_servers_updated", "ice_servers", map[string]interface{}{
		"server_count": len(servers),
		"relay_count":  relayCount(servers),
	})
	logServers("ICE servers replaced", servers)

	return ice.Clone(servers), nil
}

func (s *IceService) TTL() time.Duration {
	return s.ttl
}

func (s *IceService) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updated
}

func relayCount(servers []ice.Server) int {
	n := 0
	for _, server := range servers {
		if server.IsRelay() {
			n++
		}
	}
	return n
}

func logServers(message string, servers []ice.Server) {
	views := make([]map[string]interface{}, 0, len(servers))
	for _, server := range servers {
		views = append(views, server.Redacted())
	}
	logger.WithFields(logrus.Fields{
		"servers":     views,
		"relay_count": relayCount(servers),
	}).Info(message)

	if relayCount(servers) == 0 {
		logger.Warn("No TURN relay configured; clients behind symmetric NAT will not connect")
	}
}
