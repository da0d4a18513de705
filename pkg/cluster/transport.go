// Package cluster provides the node-to-node transport the router uses
// to relay messages to a peer (spec component C5, the router's peer relay).
package cluster

import "github.com/jabolina/crmd-core/pkg/message"

// Transport is the cluster-wide communication primitive the router
// and dispatcher depend on. Implementations need not be reliable
// end-to-end; a failed send is logged by the caller and not retried.
type Transport interface {
	// SendClusterMessage delivers msg to the named peer. An empty
	// hostTo broadcasts to every peer in the cluster.
	SendClusterMessage(hostTo string, msg *message.Message) error

	// FindPeer reports whether uname is currently reachable through
	// this transport.
	FindPeer(uname string) bool

	// Listen returns the channel new inbound messages arrive on.
	Listen() <-chan *message.Message

	// Close releases the transport's resources.
	Close() error
}
