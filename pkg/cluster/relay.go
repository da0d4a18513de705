package cluster

import (
	"context"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/jabolina/relt/pkg/relt"
	"github.com/jabolina/crmd-core/pkg/logging"
	"github.com/jabolina/crmd-core/pkg/message"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RelayTransport is a Transport backed by relt's reliable multicast,
// carrying message.Message envelopes instead of a GM-Cast payload.
type RelayTransport struct {
	log      logging.Logger
	relt     *relt.Relt
	group    string
	producer chan *message.Message
	peers    map[string]bool
	peersMu  sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRelayTransport joins the cluster multicast group named by
// clusterName under node identity uname.
func NewRelayTransport(uname, clusterName string, log logging.Logger) (*RelayTransport, error) {
	conf := relt.DefaultReltConfiguration()
	conf.Name = uname
	conf.Exchange = relt.GroupAddress(clusterName)
	r, err := relt.NewRelt(*conf)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &RelayTransport{
		log:      log,
		relt:     r,
		group:    clusterName,
		producer: make(chan *message.Message, 256),
		peers:    make(map[string]bool),
		ctx:      ctx,
		cancel:   cancel,
	}
	go t.poll()
	return t, nil
}

// SendClusterMessage broadcasts msg to the whole cluster group; hostTo
// is not used to narrow delivery, and the receiving side does not
// filter inbound messages by host_to.
func (t *RelayTransport) SendClusterMessage(hostTo string, msg *message.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		t.log.Errorf("failed marshaling cluster message %#v: %v", msg, err)
		return err
	}
	return t.relt.Broadcast(t.ctx, relt.Send{
		Address: relt.GroupAddress(t.group),
		Data:    data,
	})
}

func (t *RelayTransport) FindPeer(uname string) bool {
	t.peersMu.RLock()
	defer t.peersMu.RUnlock()
	return t.peers[uname]
}

func (t *RelayTransport) Listen() <-chan *message.Message {
	return t.producer
}

func (t *RelayTransport) Close() error {
	t.cancel()
	return t.relt.Close()
}

// poll mirrors the teacher's ReliableTransport.poll: a single goroutine
// draining relt's consume channel until the transport context is done.
func (t *RelayTransport) poll() {
	listener, err := t.relt.Consume()
	if err != nil {
		t.log.Fatalf("relay transport failed to start consuming: %v", err)
		return
	}
	for {
		select {
		case <-t.ctx.Done():
			return
		case recv, ok := <-listener:
			if !ok {
				return
			}
			t.consume(recv.Origin, relt.Recv{Data: recv.Data, Error: recv.Error})
		}
	}
}

func (t *RelayTransport) consume(origin string, recv relt.Recv) {
	if recv.Error != nil {
		t.log.Errorf("failed consuming message from %s: %v", origin, recv.Error)
		return
	}
	if recv.Data == nil {
		t.log.Warnf("received empty message from %s", origin)
		return
	}

	var m message.Message
	if err := json.Unmarshal(recv.Data, &m); err != nil {
		t.log.Errorf("failed unmarshaling message from %s: %v", origin, err)
		return
	}

	t.peersMu.Lock()
	t.peers[origin] = true
	t.peersMu.Unlock()

	timeout, cancel := context.WithTimeout(t.ctx, 250*time.Millisecond)
	defer cancel()
	select {
	case <-timeout.Done():
		t.log.Warnf("dropped message from %s, consumer too slow", origin)
	case t.producer <- &m:
	}
}
