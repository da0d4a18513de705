// Package dispatch implements the request dispatcher and synchronous
// handlers (spec components C6, C7): given a message the router has
// handed back for local processing, maps task -> FSA input or a
// synchronous reply.
package dispatch

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	hashiversion "github.com/hashicorp/go-version"
	"github.com/pkg/errors"

	"github.com/jabolina/crmd-core/internal/attrd"
	"github.com/jabolina/crmd-core/internal/exitcode"
	"github.com/jabolina/crmd-core/internal/lrm"
	"github.com/jabolina/crmd-core/pkg/fsa"
	"github.com/jabolina/crmd-core/pkg/logging"
	"github.com/jabolina/crmd-core/pkg/message"
	"github.com/jabolina/crmd-core/pkg/peercache"
	"github.com/jabolina/crmd-core/pkg/router"
)

// Tasks recognized by the request table (spec §4.4.1).
const (
	taskShutdownReq      = "shutdown_req"
	taskJoinAnnounce     = "join_announce"
	taskJoinRequest      = "join_request"
	taskJoinConfirm      = "join_confirm"
	taskShutdown         = "shutdown"
	taskRemoteState      = "remote_state"
	taskNovote           = "novote"
	taskVote             = "vote"
	taskThrottle         = "throttle"
	taskClearFailcount   = "clear_failcount"
	taskJoinOffer        = "join_offer"
	taskJoinAckNack      = "join_ack_nack"
	taskLRMDelete        = "lrm_delete"
	taskLRMFail          = "lrm_fail"
	taskLRMRefresh       = "lrm_refresh"
	taskReprobe          = "reprobe"
	taskNoop             = "noop"
	taskLocalShutdown    = "local_shutdown"
	taskPing             = "ping"
	taskNodeInfo         = "node_info"
	taskRMNodeCache      = "rm_node_cache"
	taskMaintenanceNodes = "maintenance_nodes"

	taskPECalc = "pe_calc"

	fieldResourceID  = "resource_id"
	fieldTargetNode  = "target_node"
	fieldOpName      = "op_name"
	fieldIntervalMS  = "interval_ms"
	fieldRouterNode  = "router_node"
	fieldInCluster   = "in_cluster"
	fieldVersion     = "version"

	legacyFeatureSet = "3.0.14"
)

// ShutdownTrigger is invoked by local_shutdown to begin an orderly
// shutdown, the SIGTERM-equivalent spec.md §4.4.1 names.
type ShutdownTrigger interface {
	TriggerShutdown()
}

// IPCRelay is reused from pkg/router: synthetic replies re-enter the
// router, which may in turn relay via IPC.
type IPCRelay = router.IPCRelay

// Dispatcher implements spec §4.4 (C6) and §4.5–§4.7 (C7).
type Dispatcher struct {
	log         logging.Logger
	state       State
	queue       *fsa.Queue
	peers       peercache.Cache
	attrdClient attrd.Client
	lrmClient   lrm.Client
	rt          *router.Router
	shutdown    ShutdownTrigger
	featureSet  string
}

// New builds a Dispatcher.
func New(log logging.Logger, state State, queue *fsa.Queue, peers peercache.Cache, attrdClient attrd.Client, lrmClient lrm.Client, rt *router.Router, shutdown ShutdownTrigger, featureSet string) *Dispatcher {
	if log == nil {
		log = logging.NewDiscardLogger()
	}
	return &Dispatcher{
		log:         log,
		state:       state,
		queue:       queue,
		peers:       peers,
		attrdClient: attrdClient,
		lrmClient:   lrmClient,
		rt:          rt,
		shutdown:    shutdown,
		featureSet:  featureSet,
	}
}

// Handle implements the C6 entry point.
func (d *Dispatcher) Handle(msg *message.Message, cause fsa.Cause) (fsa.Input, error) {
	if msg == nil {
		d.log.Errorf("dispatch: nil message for cause %s", cause)
		return fsa.InputNull, nil
	}
	switch msg.Type {
	case message.Response:
		d.handleResponse(msg)
		return fsa.InputNull, nil
	case message.Request:
		return d.handleRequest(msg, cause)
	default:
		d.log.Errorf("dispatch: message with unrecognized type %q", msg.Type)
		return fsa.InputNull, nil
	}
}

func (d *Dispatcher) handleRequest(msg *message.Message, cause fsa.Cause) (fsa.Input, error) {
	switch msg.Task {
	case taskShutdownReq:
		return d.handleShutdownReq(msg)
	case taskJoinAnnounce:
		if !d.state.AmIDC() {
			return fsa.InputNull, nil
		}
		return fsa.InputNodeJoin, nil
	case taskJoinRequest:
		if !d.state.AmIDC() {
			return fsa.InputNull, nil
		}
		return fsa.InputJoinRequest, nil
	case taskJoinConfirm:
		if !d.state.AmIDC() {
			return fsa.InputNull, nil
		}
		return fsa.InputJoinResult, nil
	case taskShutdown:
		return d.handleShutdown(msg)
	case taskRemoteState:
		if !d.state.AmIDC() {
			return fsa.InputNull, nil
		}
		d.handleRemoteState(msg)
		return fsa.InputNull, nil
	case taskNovote:
		d.queue.RaiseLater(cause, fsa.InputNull, &fsa.HAMessageInput{Msg: msg}, fsa.ActionElectionCount|fsa.ActionElectionCheck, msg.Task)
		return fsa.InputNull, nil
	case taskVote:
		d.queue.RaiseLater(cause, fsa.InputNull, &fsa.HAMessageInput{Msg: msg}, fsa.ActionElectionCount|fsa.ActionElectionCheck, msg.Task)
		if d.state.FSAState() == fsa.StateHalt {
			return fsa.InputElection, nil
		}
		return fsa.InputNull, nil
	case taskThrottle:
		d.log.Debugf("dispatch: throttle update from %s", msg.HostFrom)
		return fsa.InputNull, nil
	case taskClearFailcount:
		return d.handleClearFailcount(msg)
	case taskJoinOffer:
		if err := d.verifyFeatureSet(msg); err != nil {
			return fsa.InputNull, err
		}
		return fsa.InputJoinOffer, nil
	case taskJoinAckNack:
		return fsa.InputJoinResult, nil
	case taskLRMDelete, taskLRMFail, taskLRMRefresh, taskReprobe:
		msg.SysTo = message.SysLRMD
		return fsa.InputRouter, nil
	case taskNoop:
		return fsa.InputNull, nil
	case taskLocalShutdown:
		if d.shutdown != nil {
			d.shutdown.TriggerShutdown()
		}
		return fsa.InputNull, nil
	case taskPing:
		d.replyPing(msg)
		return fsa.InputNull, nil
	case taskNodeInfo:
		d.replyNodeInfo(msg)
		return fsa.InputNull, nil
	case taskRMNodeCache:
		d.handleRMNodeCache(msg, cause)
		return fsa.InputNull, nil
	case taskMaintenanceNodes:
		d.log.Debugf("dispatch: maintenance_nodes payload handed to remote-RA maintenance routine")
		return fsa.InputNull, nil
	default:
		d.log.Errorf("dispatch: unrecognized task %q", msg.Task)
		return fsa.InputNull, nil
	}
}

// handleResponse implements spec §4.4.2.
func (d *Dispatcher) handleResponse(msg *message.Message) {
	switch msg.Task {
	case taskPECalc:
		if msg.Reference == "" || msg.Reference != d.state.PEReference() {
			d.log.Infof("dispatch: obsolete pe_calc reply with reference %q (expected %q)", msg.Reference, d.state.PEReference())
			return
		}
		d.queue.RaiseLater(fsa.CauseHAMessage, fsa.InputPESuccess, &fsa.HAMessageInput{Msg: msg}, fsa.ActionNothing, "pe_calc response")
	case taskVote, taskShutdownReq, taskShutdown:
		// Silently accepted: these are ack paths with no further action
		// (spec.md §4.4.2, §13 Open Questions).
	default:
		d.log.Warnf("dispatch: unrecognized response task %q", msg.Task)
	}
}

// handleShutdown implements spec §4.4.3.
func (d *Dispatcher) handleShutdown(msg *message.Message) (fsa.Input, error) {
	reg := d.state.Register()
	if d.state.AmIDC() {
		if reg.Has(fsa.RShutdown) {
			return fsa.InputStop, nil
		}
		if msg.HostFrom == d.state.OurDC() {
			return fsa.InputTerminate, nil
		}
		if d.state.FSAState() != fsa.StateStopping {
			return fsa.InputElection, nil
		}
		return fsa.InputNull, nil
	}

	if msg.HostFrom == d.state.OurDC() || d.state.OurDC() == "" {
		if !reg.Has(fsa.RShutdown) {
			d.state.SetRegister(reg.Set(fsa.RStaydown))
			return fsa.InputStop, nil
		}
		return fsa.InputStop, nil
	}

	d.log.Warnf("dispatch: discarding shutdown from %s, not our dc %s", msg.HostFrom, d.state.OurDC())
	return fsa.InputNull, nil
}

// handleShutdownReq implements spec §4.4.1's shutdown_req row and §4.5.
func (d *Dispatcher) handleShutdownReq(msg *message.Message) (fsa.Input, error) {
	if d.peers != nil && msg.HostFrom != "" {
		_ = d.peers.UpdateExpected(0, msg.HostFrom, "down")
	}
	if !d.state.AmIDC() {
		return fsa.InputNull, nil
	}

	target := msg.HostFrom
	if target == "" {
		target = d.state.OurUname()
	}
	if d.attrdClient != nil {
		if err := d.attrdClient.UpdateAttr(target, "shutdown", strconv.FormatInt(nowStamp(), 10), "reboot", false); err != nil {
			d.log.Errorf("dispatch: failed writing shutdown attribute for %s: %v", target, err)
		}
	}
	return fsa.InputNull, nil
}

// nowStamp is a seam for the shutdown-attribute timestamp; tests
// override it with a fixed value, production leaves it at wall-clock
// time, matching the original's time(NULL).
var nowStamp = func() int64 { return time.Now().Unix() }

func (d *Dispatcher) handleRemoteState(msg *message.Message) {
	inCluster, _ := msg.Payload[fieldInCluster].(bool)
	remote, _ := msg.Get("id")
	if d.peers == nil {
		return
	}
	state := peercache.StateLost
	if inCluster {
		state = peercache.StateMember
	}
	if err := d.peers.UpdateState(0, remote, state); err != nil {
		d.log.Errorf("dispatch: failed updating remote state for %s: %v", remote, err)
	}
}

// handleClearFailcount implements spec §4.4.4.
func (d *Dispatcher) handleClearFailcount(msg *message.Message) (fsa.Input, error) {
	resourceID, okID := msg.Get(fieldResourceID)
	target, okTarget := msg.Get(fieldTargetNode)
	if !okID || resourceID == "" || !okTarget || target == "" {
		d.log.Errorf("dispatch: clear_failcount missing resource_id or target_node")
		return fsa.InputNull, nil
	}
	op, _ := msg.Get(fieldOpName)
	interval, _ := msg.Get(fieldIntervalMS)
	_, remote := msg.Get(fieldRouterNode)

	if d.attrdClient != nil {
		if err := d.attrdClient.ClearFailures(target, resourceID, op, interval, remote); err != nil {
			d.log.Errorf("dispatch: attrd clear_failures failed: %v", err)
		}
	}
	if d.lrmClient != nil {
		intervalMS, _ := strconv.Atoi(interval)
		if err := d.lrmClient.ClearLastFailure(resourceID, target, op, uint(intervalMS)); err != nil {
			d.log.Errorf("dispatch: lrm clear_last_failure failed: %v", err)
		}
	}
	return fsa.InputNull, nil
}

// verifyFeatureSet implements spec §4.4.5.
func (d *Dispatcher) verifyFeatureSet(msg *message.Message) error {
	advertised, ok := msg.Get(fieldVersion)
	if !ok || advertised == "" {
		advertised = legacyFeatureSet
	}

	dcVersion, err := hashiversion.NewVersion(advertised)
	if err != nil {
		return d.incompatible(errors.Wrapf(err, "unparseable feature set %q", advertised))
	}
	localVersion, err := hashiversion.NewVersion(d.featureSet)
	if err != nil {
		return d.incompatible(errors.Wrapf(err, "unparseable local feature set %q", d.featureSet))
	}

	if !compatible(dcVersion, localVersion) {
		return d.incompatible(errors.Errorf("incompatible feature set: dc=%s local=%s", advertised, d.featureSet))
	}
	return nil
}

func compatible(dc, local *hashiversion.Version) bool {
	dcSeg, localSeg := dc.Segments(), local.Segments()
	if len(dcSeg) < 2 || len(localSeg) < 2 {
		return false
	}
	if dcSeg[0] != localSeg[0] {
		return false
	}
	return dcSeg[1] >= localSeg[1]
}

func (d *Dispatcher) incompatible(err error) error {
	d.log.Errorf("dispatch: %v", err)
	d.state.SetRegister(d.state.Register().Set(fsa.RStaydown))
	exitcode.Exit(exitcode.Fatal)
	return err
}

// handleRMNodeCache implements spec §4.4.1's rm_node_cache row.
func (d *Dispatcher) handleRMNodeCache(msg *message.Message, cause fsa.Cause) {
	if cause == fsa.CauseIPCMessage {
		d.broadcastRMNodeCache(msg.HostFrom)
		return
	}

	target, _ := msg.Get("uname")
	if target == "" {
		return
	}
	if d.peers != nil {
		if err := d.peers.Remove(0, target); err != nil {
			d.log.Warnf("dispatch: rm_node_cache could not remove %s: %v", target, err)
		}
	}
	if d.attrdClient != nil {
		_ = d.attrdClient.ClearFailures(target, "", "", "", false)
	}
}

// broadcastRMNodeCache instructs every peer to forget its cached
// reference to nodeName, mirroring the original's IPC-origin branch of
// CRM_OP_RM_NODE_CACHE (controld_messages.c): a fresh request, no
// host_to, sent to every peer.
func (d *Dispatcher) broadcastRMNodeCache(nodeName string) {
	broadcast := message.New(taskRMNodeCache, message.SysController)
	broadcast.SysFrom = message.SysController
	broadcast.HostFrom = d.state.OurUname()
	broadcast.Reference = NewReference()
	broadcast.Set("uname", nodeName)

	if d.rt == nil {
		d.log.Errorf("dispatch: no router configured to broadcast rm_node_cache for %s", nodeName)
		return
	}
	if _, err := d.rt.Route(broadcast, true); err != nil {
		d.log.Errorf("dispatch: could not instruct peers to remove references to %s: %v", nodeName, err)
		return
	}
	d.log.Infof("dispatch: instructing peers to remove references to %s", nodeName)
}

// NotifyRemoteState notifies the DC of a pacemaker_remote node's
// membership change, mirroring send_remote_state_message
// (controld_messages.c). If there is no DC yet, the CIB's node state
// will eventually surface the change instead, so this is best-effort.
func (d *Dispatcher) NotifyRemoteState(nodeName string, up bool) {
	dc := d.state.OurDC()
	if dc == "" {
		d.log.Debugf("dispatch: no DC to notify of pacemaker_remote node %s state change", nodeName)
		return
	}

	notify := message.New(taskRemoteState, message.SysDC)
	notify.SysFrom = message.SysController
	notify.HostTo = dc
	notify.Reference = NewReference()
	notify.Set("id", nodeName)
	notify.Set(fieldInCluster, up)

	d.log.Infof("dispatch: notifying DC %s of pacemaker_remote node %s %s", dc, nodeName, upDownLabel(up))
	if d.rt == nil {
		d.log.Errorf("dispatch: no router configured to notify DC of %s", nodeName)
		return
	}
	if _, err := d.rt.Route(notify, true); err != nil {
		d.log.Errorf("dispatch: failed notifying DC of remote node %s: %v", nodeName, err)
	}
}

func upDownLabel(up bool) string {
	if up {
		return "coming up"
	}
	return "going down"
}

// replyPing implements spec §4.7.
func (d *Dispatcher) replyPing(msg *message.Message) {
	reply := message.CreateReply(msg, map[string]interface{}{
		"sys_from":         msg.SysTo,
		"controller_state": string(d.state.FSAState()),
		"status":           "ok",
	})
	d.reenterRouter(reply)
}

// replyNodeInfo implements spec §4.7.
func (d *Dispatcher) replyNodeInfo(msg *message.Message) {
	payload := map[string]interface{}{
		"sys_from":     message.SysController,
		"have_quorum":  d.state.HasQuorum(),
	}

	id, hasID := msg.Get("id")
	uname, hasUName := msg.Get("uname")
	if !hasID && !hasUName {
		uname = d.state.OurUname()
		hasUName = true
	}

	var idNum uint32
	if hasID {
		n, err := strconv.Atoi(id)
		if err != nil || n < 0 {
			n = 0
		}
		idNum = uint32(n)
	}

	var peer *peercache.Peer
	var found bool
	if d.peers != nil {
		peer, found = d.peers.Get(idNum, uname)
	}
	if found {
		payload["id"] = peer.ID
		payload["uuid"] = peer.UUID
		payload["uname"] = peer.UName
		payload["state"] = string(peer.State)
		payload["is_remote"] = peer.IsRemote()
	}

	reply := message.CreateReply(msg, payload)
	d.reenterRouter(reply)
}

func (d *Dispatcher) reenterRouter(reply *message.Message) {
	if d.rt == nil {
		d.log.Errorf("dispatch: no router configured to re-enter with reply %#v", reply)
		return
	}
	if _, err := d.rt.Route(reply, true); err != nil {
		d.log.Errorf("dispatch: failed re-entering router with reply: %v", err)
	}
}

// NewReference generates a correlation id for synthesized requests
// (rm_node_cache broadcasts, remote-state notifications), grounded on
// the teacher's use of google/uuid for identity values.
func NewReference() string {
	return uuid.New().String()
}
