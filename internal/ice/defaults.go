package ice

var defaultServers = []Server{
	{URLs: []string{"stun:stun.l.google.com:19302"}},
	{URLs: []string{"stun:stun1.l.google.com:19302"}},
	{URLs: []string{"stun:stun2.l.google.com:19302"}},
	{URLs: []string{"stun:stun.cloudflare.com:3478"}},
}

// DefaultServers returns the public STUN servers used when no ICE servers are
// configured. They are enough for direct connectivity but provide no relay
// for clients behind symmetric NAT.
func DefaultServers() []Server {
	return clone(defaultServers)
}
