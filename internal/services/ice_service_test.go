package services

import (
	"sync"
	"testing"
	"time"

	"monobase/internal/ice"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIceServiceServersAreCopies(t *testing.T) {
	svc := NewIceService(ice.DefaultServers(), time.Hour)

	servers := svc.Servers()
	servers[0].URLs[0] = "stun:mutated:1"

	assert.Equal(t, ice.DefaultServers(), svc.Servers())
	assert.Equal(t, time.Hour, svc.TTL())
}

func TestIceServiceUpdate(t *testing.T) {
	svc := NewIceService(ice.DefaultServers(), time.Hour)
	before := svc.UpdatedAt()

	servers, err := svc.Update("turn:monobase:secret@turn.example.com:3478,stun:stun.example.com:3478", "admin-1")
	require.NoError(t, err)
	require.Len(t, servers, 2)
	assert.Equal(t, servers, svc.Servers())
	assert.False(t, svc.UpdatedAt().Before(before))
	assert.Equal(t, "monobase", svc.Servers()[0].Username)
}

func TestIceServiceRejectsListPionCannotUse(t *testing.T) {
	initial := ice.DefaultServers()
	svc := NewIceService(initial, time.Hour)

	servers, err := svc.Update("stun:stun.example.com:3478,stun:stun.example.com:notaport", "admin-1")
	assert.Nil(t, servers)
	assert.ErrorIs(t, err, ice.ErrRejectedByWebRTC)
	assert.Equal(t, initial, svc.Servers())
}

func TestIceServiceRejectsMalformedUpdate(t *testing.T) {
	initial, err := ice.ParseServers("turn:monobase:secret@turn.example.com:3478")
	require.NoError(t, err)
	svc := NewIceService(initial, time.Hour)

	servers, err := svc.Update("turn:monobase:secret@turn.example.com:3478,bogus:host:1", "admin-1")
	assert.Nil(t, servers)
	assert.ErrorIs(t, err, ice.ErrUnknownProtocol)
	assert.Equal(t, initial, svc.Servers())
}

func TestIceServiceBlankUpdateResetsToDefaults(t *testing.T) {
	initial, err := ice.ParseServers("turn:u:p@turn.example.com:3478")
	require.NoError(t, err)
	svc := NewIceService(initial, time.Hour)

	servers, err := svc.Update("  ", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, ice.DefaultServers(), servers)
	assert.Zero(t, relayCount(svc.Servers()))
}

func TestIceServiceConcurrentAccess(t *testing.T) {
	svc := NewIceService(ice.DefaultServers(), time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.Update("stun:a:1,turn:u:p@b:2", "admin")
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			assert.NotEmpty(t, svc.Servers())
		}()
	}
	wg.Wait()
}
