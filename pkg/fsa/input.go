package fsa

// Input is the logical FSA input symbol carried by an event. The set is
// closed and mirrors Pacemaker's crmd_fsa_input enum; only a handful of
// these are produced by the router/dispatcher in this repository, the
// rest exist because the real transition table (out of scope here)
// switches on them too and the enum must stay a believable closed set.
type Input string

const (
	InputNull          Input = "null"
	InputWaitForEvent  Input = "wait_for_event"
	InputRouter        Input = "router"
	InputCIBOp         Input = "cib_op"
	InputCIBUpdate     Input = "cib_update"
	InputNodeJoin      Input = "node_join"
	InputJoinOffer     Input = "join_offer"
	InputJoinRequest   Input = "join_request"
	InputJoinResult    Input = "join_result"
	InputPECalc        Input = "pe_calc"
	InputPESuccess     Input = "pe_success"
	InputElection      Input = "election"
	InputElectionDC    Input = "election_dc"
	InputDCTimeout     Input = "dc_timeout"
	InputDCHeartbeat   Input = "dc_heartbeat"
	InputReleaseDC     Input = "release_dc"
	InputNotDC         Input = "not_dc"
	InputError         Input = "error"
	InputFail          Input = "fail"
	InputIntegrated    Input = "integrated"
	InputFinalized     Input = "finalized"
	InputRecovered     Input = "recovered"
	InputReleaseFail   Input = "release_fail"
	InputReleaseSucc   Input = "release_success"
	InputRestart       Input = "restart"
	InputStop          Input = "stop"
	InputTerminate     Input = "terminate"
	InputShutdown      Input = "shutdown"
	InputStartup       Input = "startup"
	InputMessage       Input = "message"
	InputLRMEvent      Input = "lrm_event"
	InputPending        Input = "pending"
	InputHalt           Input = "halt"
	InputIllegal        Input = "illegal"
)
