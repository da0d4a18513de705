package cluster

import "github.com/jabolina/crmd-core/pkg/message"

// LoopbackTransport is an in-memory Transport for single-node tests: it
// echoes every message sent to self or broadcast (empty hostTo) straight
// back onto its own Listen channel, and drops messages for other hosts.
type LoopbackTransport struct {
	self     string
	producer chan *message.Message
	closed   bool
}

// NewLoopbackTransport builds a transport that only knows about self.
func NewLoopbackTransport(self string) *LoopbackTransport {
	return &LoopbackTransport{
		self:     self,
		producer: make(chan *message.Message, 64),
	}
}

func (l *LoopbackTransport) SendClusterMessage(hostTo string, msg *message.Message) error {
	if l.closed {
		return nil
	}
	if hostTo != "" && hostTo != l.self {
		return nil
	}
	l.producer <- msg.Clone()
	return nil
}

func (l *LoopbackTransport) FindPeer(uname string) bool {
	return uname == l.self
}

func (l *LoopbackTransport) Listen() <-chan *message.Message {
	return l.producer
}

func (l *LoopbackTransport) Close() error {
	if !l.closed {
		l.closed = true
		close(l.producer)
	}
	return nil
}
