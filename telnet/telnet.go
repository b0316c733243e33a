// Package telnet implements the Telnet option-negotiation envelope that
// wraps the HLX wire protocol: IAC byte-stuffing is stripped from inbound
// application data and any option negotiation the peer initiates is
// refused, since this framer negotiates no options of its own.
package telnet

// Telnet protocol bytes (RFC 854).
const (
	IAC  byte = 255
	DONT byte = 254
	DO   byte = 253
	WONT byte = 252
	WILL byte = 251
	SB   byte = 250
	SE   byte = 240
)

type state int

const (
	stateData state = iota
	stateIAC
	stateOption
	stateSubneg
	stateSubnegIAC
)

// Framer consumes raw socket bytes and separates Telnet command sequences
// from application data. It holds no options: any WILL/DO from the peer is
// answered with the corresponding refusal (DONT/WONT), and subnegotiation
// requests (IAC SB ... IAC SE) are swallowed without a reply.
type Framer struct {
	st        state
	lastWill  byte // the WILL/WONT/DO/DONT byte currently awaiting its option byte
}

// NewFramer returns a Framer with an empty option list.
func NewFramer() *Framer {
	return &Framer{st: stateData}
}

// Consume processes raw inbound bytes, returning the application data
// (IAC sequences removed) and any bytes that must be sent back to the peer
// (refusal responses to option negotiation).
func (f *Framer) Consume(in []byte) (data []byte, send []byte) {
	data = make([]byte, 0, len(in))
	for _, b := range in {
		switch f.st {
		case stateData:
			if b == IAC {
				f.st = stateIAC
				continue
			}
			data = append(data, b)

		case stateIAC:
			switch b {
			case IAC:
				// escaped 0xFF byte in the application stream
				data = append(data, IAC)
				f.st = stateData
			case WILL, WONT, DO, DONT:
				f.lastWill = b
				f.st = stateOption
			case SB:
				f.st = stateSubneg
			default:
				// other commands (NOP, AYT, ...) carry no option byte
				f.st = stateData
			}

		case stateOption:
			send = append(send, f.refusalFor(f.lastWill, b)...)
			f.st = stateData

		case stateSubneg:
			if b == IAC {
				f.st = stateSubnegIAC
			}
			// subnegotiation payload is discarded

		case stateSubnegIAC:
			if b == SE {
				f.st = stateData
			} else {
				// not a terminator; back to collecting subneg payload
				f.st = stateSubneg
			}
		}
	}
	return data, send
}

// refusalFor returns the IAC response refusing a WILL/DO request (we
// negotiate no options so the answer is always a refusal) or nil for a
// WONT/DONT, which requires no acknowledgement.
func (f *Framer) refusalFor(request, option byte) []byte {
	switch request {
	case WILL:
		return []byte{IAC, DONT, option}
	case DO:
		return []byte{IAC, WONT, option}
	default:
		return nil
	}
}

// Wrap escapes any literal 0xFF bytes in application data for transmission
// (byte-stuffing IAC), as Send does before writing to the socket.
func Wrap(appData []byte) []byte {
	out := make([]byte, 0, len(appData))
	for _, b := range appData {
		if b == IAC {
			out = append(out, IAC, IAC)
		} else {
			out = append(out, b)
		}
	}
	return out
}
