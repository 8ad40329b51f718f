package core

// Command is a decoded directional command.
// The numeric value is the ordinal reported in the status payload, so the
// order of the constants below is part of the wire contract.
type Command uint8

const (
	CmdForwardLeft  Command = iota // FLT
	CmdForwardRight                // FRT
	CmdForward                     // FWD
	CmdLeft                        // LFT, pivot
	CmdRight                       // RGT, pivot
	CmdBackLeft                    // BLT
	CmdBackward                    // BWD
	CmdBackRight                   // BRT
	CmdStop                        // STP
	CmdNone                        // no command received this tick
)

// NumCommands is the number of Command values, including CmdNone
const NumCommands = int(CmdNone) + 1

// commandTokens maps each command to its three-letter request token.
// CmdNone has no token.
var commandTokens = [NumCommands]string{
	CmdForwardLeft:  "FLT",
	CmdForwardRight: "FRT",
	CmdForward:      "FWD",
	CmdLeft:         "LFT",
	CmdRight:        "RGT",
	CmdBackLeft:     "BLT",
	CmdBackward:     "BWD",
	CmdBackRight:    "BRT",
	CmdStop:         "STP",
}

var commandNames = [NumCommands]string{
	CmdForwardLeft:  "forward-left",
	CmdForwardRight: "forward-right",
	CmdForward:      "forward",
	CmdLeft:         "left",
	CmdRight:        "right",
	CmdBackLeft:     "back-left",
	CmdBackward:     "backward",
	CmdBackRight:    "back-right",
	CmdStop:         "stop",
	CmdNone:         "none",
}

// DecodeCommand maps a request token to a Command.
// Matching is exact and case-sensitive. Anything that is not one of the
// nine tokens, including the empty string, decodes to CmdNone.
func DecodeCommand(token string) Command {
	if len(token) != 3 {
		return CmdNone
	}
	for i := 0; i < int(CmdNone); i++ {
		if commandTokens[i] == token {
			return Command(i)
		}
	}
	return CmdNone
}

// Token returns the request token for the command ("" for CmdNone)
func (c Command) Token() string {
	if int(c) >= NumCommands {
		return ""
	}
	return commandTokens[c]
}

// String returns a human readable name
func (c Command) String() string {
	if int(c) >= NumCommands {
		return "invalid"
	}
	return commandNames[c]
}

// IsManeuver reports whether the command selects a wheel maneuver,
// i.e. it is neither CmdStop nor CmdNone.
func (c Command) IsManeuver() bool {
	return c < CmdStop
}
