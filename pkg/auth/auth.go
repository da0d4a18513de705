// Package auth implements the hello/authorization handshake (spec
// component C4): gating a local IPC client's requests until it presents
// a valid hello message.
package auth

import (
	"strconv"

	"github.com/jabolina/crmd-core/pkg/logging"
	"github.com/jabolina/crmd-core/pkg/message"
)

const (
	taskHello = "hello"

	fieldClientName   = "client_name"
	fieldMajorVersion = "major_version"
	fieldMinorVersion = "minor_version"
)

// Client is the minimal surface the authorizer needs on an IPC client
// connection: a place to stash the negotiated name, and a way to tear
// the connection down on handshake failure.
type Client interface {
	SetName(name string)
	Disconnect()
}

// Trigger mirrors fsa.Trigger: the authorizer arms the event loop once
// a hello succeeds, the same as a successful raise would.
type Trigger interface {
	Arm()
}

// Authorizer implements the hello/handshake gate in front of the
// dispatcher (spec §4.2).
type Authorizer struct {
	log     logging.Logger
	trigger Trigger
}

// New builds an Authorizer. A nil logger defaults to a discard logger.
func New(log logging.Logger, trigger Trigger) *Authorizer {
	if log == nil {
		log = logging.NewDiscardLogger()
	}
	return &Authorizer{log: log, trigger: trigger}
}

// Authorize validates msg against the hello contract. Both client and
// proxySession may be supplied; at least one identifies the caller.
// Returns false whenever the hello itself must not reach the
// dispatcher — which is always, by construction (spec §4.2).
func (a *Authorizer) Authorize(msg *message.Message, client Client, proxySession string) bool {
	if client == nil && proxySession == "" {
		a.log.Warn("authorize: no client handle or proxy session, rejecting")
		return false
	}

	if msg == nil || msg.Task != taskHello {
		// Already authorized clients pass everything else through.
		return true
	}

	name, okName := msg.Get(fieldClientName)
	majorRaw, okMajor := msg.Get(fieldMajorVersion)
	minorRaw, okMinor := msg.Get(fieldMinorVersion)

	if !okName || name == "" || !okMajor || !okMinor {
		a.log.Warnf("authorize: malformed hello from proxy=%s", proxySession)
		if client != nil {
			client.Disconnect()
		}
		return false
	}

	major, majorErr := strconv.Atoi(majorRaw)
	minor, minorErr := strconv.Atoi(minorRaw)
	if majorErr != nil || minorErr != nil || major < 0 || minor < 0 {
		a.log.Warnf("authorize: non-numeric hello version from %s: %s.%s", name, majorRaw, minorRaw)
		if client != nil {
			client.Disconnect()
		}
		return false
	}

	if client != nil {
		client.SetName(name)
	}
	if a.trigger != nil {
		a.trigger.Arm()
	}
	a.log.Infof("authorize: client %s said hello (%d.%d)", name, major, minor)
	return false
}
