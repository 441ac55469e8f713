package niu

import (
	"fmt"

	"github.com/sarchlab/hbmnoc/noc/messaging"
)

// legacyPhase is the part of a split transaction that a legacy NIU is
// working on. Master phases start a transaction. Serve phases answer one.
type legacyPhase int

const (
	phaseIdle legacyPhase = iota
	phaseReadAddr
	phaseReadData
	phaseWriteAddr
	phaseWriteResp
	phaseServeReadAddr
	phaseServeReadData
	phaseServeWriteAddr
	phaseServeWriteResp
)

var phaseNames = map[legacyPhase]string{
	phaseIdle:           "Idle",
	phaseReadAddr:       "ReadAddr",
	phaseReadData:       "ReadData",
	phaseWriteAddr:      "WriteAddr",
	phaseWriteResp:      "WriteResp",
	phaseServeReadAddr:  "ServeReadAddr",
	phaseServeReadData:  "ServeReadData",
	phaseServeWriteAddr: "ServeWriteAddr",
	phaseServeWriteResp: "ServeWriteResp",
}

func (p legacyPhase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}

	return fmt.Sprintf("phase(%d)", int(p))
}

// step is the progress within a phase.
type step int

const (
	stepMake step = iota
	stepSendHead
	stepSendTail
	stepWait

	// stepRetry restarts the phase on the next tick.
	stepRetry

	// The invalidate steps decline a request from a node that is not the
	// partner, then return to the resume step.
	stepInvalidMake
	stepInvalidSendHead
	stepInvalidSendTail
)

var stepNames = map[step]string{
	stepMake:            "Make",
	stepSendHead:        "SendHead",
	stepSendTail:        "SendTail",
	stepWait:            "Wait",
	stepRetry:           "Retry",
	stepInvalidMake:     "InvalidMake",
	stepInvalidSendHead: "InvalidSendHead",
	stepInvalidSendTail: "InvalidSendTail",
}

func (s step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}

	return fmt.Sprintf("step(%d)", int(s))
}

type legacyState struct {
	phase  legacyPhase
	step   step
	resume step
}

func (s legacyState) String() string {
	return s.phase.String() + "/" + s.step.String()
}

// phaseSpec tells which signals a phase announces and which answer it waits
// for.
type phaseSpec struct {
	channel messaging.Channel
	valid   bool
	ready   bool

	// waitChannel is ChannelNone if the phase ends once announced. Otherwise
	// the partner must answer on waitChannel, asserting Valid if waitValid
	// is set and Ready if not.
	waitChannel messaging.Channel
	waitValid   bool

	next legacyPhase
}

var phaseSpecs = map[legacyPhase]phaseSpec{
	phaseReadAddr: {
		channel: messaging.ChannelAR, valid: true,
		waitChannel: messaging.ChannelAR,
		next:        phaseReadData,
	},
	phaseReadData: {
		channel: messaging.ChannelR, ready: true,
		waitChannel: messaging.ChannelR, waitValid: true,
		next: phaseIdle,
	},
	phaseWriteAddr: {
		channel: messaging.ChannelAW, valid: true,
		waitChannel: messaging.ChannelAW,
		next:        phaseWriteResp,
	},
	phaseWriteResp: {
		channel: messaging.ChannelB, ready: true,
		waitChannel: messaging.ChannelB, waitValid: true,
		next: phaseIdle,
	},
	phaseServeReadAddr: {
		channel: messaging.ChannelAR, ready: true,
		waitChannel: messaging.ChannelR,
		next:        phaseServeReadData,
	},
	phaseServeReadData: {
		channel: messaging.ChannelR, valid: true,
		next: phaseIdle,
	},
	phaseServeWriteAddr: {
		channel: messaging.ChannelAW, ready: true,
		waitChannel: messaging.ChannelB,
		next:        phaseServeWriteResp,
	},
	phaseServeWriteResp: {
		channel: messaging.ChannelB, valid: true,
		next: phaseIdle,
	},
}

// accepts tells if a handshake from the partner completes the wait of the
// phase.
func (s phaseSpec) accepts(h messaging.Handshake) bool {
	if h.Channel != s.waitChannel {
		return false
	}

	if s.waitValid {
		return h.Valid
	}

	return h.Ready
}

// isRequest tells if a handshake opens a new transaction.
func isRequest(h messaging.Handshake) bool {
	return h.Valid &&
		(h.Channel == messaging.ChannelAR || h.Channel == messaging.ChannelAW)
}
