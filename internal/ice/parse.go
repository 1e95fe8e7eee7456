package ice

import (
	"regexp"
	"strings"
)

// remainderPattern matches everything after "protocol:". Credentials are only
// recognised when terminated by '@'; the host:port part is kept opaque apart
// from rejecting whitespace and stray '@'.
var remainderPattern = regexp.MustCompile(`^(?:([^:@]+):([^@]+)@)?([^@\s]*)$`)

// ParseServer parses a descriptor of the form
// protocol:[username:password@]host:port into a Server.
func ParseServer(descriptor string) (Server, error) {
	input := strings.TrimSpace(descriptor)

	scheme, rest, found := strings.Cut(input, ":")
	protocol := Protocol(scheme)
	if !protocol.valid() {
		return Server{}, formatError(input, ErrUnknownProtocol)
	}
	if !found {
		return Server{}, formatError(input, ErrMissingHostPort)
	}

	m := remainderPattern.FindStringSubmatch(rest)
	if m == nil {
		return Server{}, formatError(input, ErrMalformedDescriptor)
	}
	username, credential, hostPort := m[1], m[2], m[3]
	if !validHostPort(hostPort) {
		return Server{}, formatError(input, ErrMissingHostPort)
	}

	return newServer(protocol, hostPort, username, credential), nil
}

// ParseServers parses a comma separated list of descriptors. Order is kept.
// The first malformed entry fails the whole list and no servers are returned.
func ParseServers(list string) ([]Server, error) {
	segments := strings.Split(list, ",")
	servers := make([]Server, 0, len(segments))
	for _, segment := range segments {
		server, err := ParseServer(segment)
		if err != nil {
			return nil, err
		}
		servers = append(servers, server)
	}
	return servers, nil
}

func (p Protocol) valid() bool {
	switch p {
	case ProtocolSTUN, ProtocolTURN, ProtocolTURNS:
		return true
	}
	return false
}

// validHostPort only requires a non-empty host and port around the last
// colon. Extra colons in the host are accepted as-is.
func validHostPort(hostPort string) bool {
	i := strings.LastIndexByte(hostPort, ':')
	return i > 0 && i < len(hostPort)-1
}
