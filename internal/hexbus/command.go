// internal/hexbus/command.go
package hexbus

import "fmt"

// Command is the PAB operation code.
type Command uint8

const (
	CmdOpen           Command = 0x00
	CmdClose          Command = 0x01
	CmdDeleteOpen     Command = 0x02
	CmdRead           Command = 0x03
	CmdWrite          Command = 0x04
	CmdRestore        Command = 0x05
	CmdDelete         Command = 0x06
	CmdReturnStatus   Command = 0x07
	CmdServiceEnable  Command = 0x08
	CmdServiceDisable Command = 0x09
	CmdServicePoll    Command = 0x0A
	CmdSetOptions     Command = 0x0B
	CmdXmitBreak      Command = 0x0C
	CmdVerify         Command = 0x0D
	CmdFormat         Command = 0x0E
	CmdCatalog        Command = 0x0F
	CmdReset          Command = 0xFE
)

var commandNames = map[Command]string{
	CmdOpen:           "open",
	CmdClose:          "close",
	CmdDeleteOpen:     "delete-open",
	CmdRead:           "read",
	CmdWrite:          "write",
	CmdRestore:        "restore",
	CmdDelete:         "delete",
	CmdReturnStatus:   "return-status",
	CmdServiceEnable:  "svc-enable",
	CmdServiceDisable: "svc-disable",
	CmdServicePoll:    "svc-poll",
	CmdSetOptions:     "set-options",
	CmdXmitBreak:      "xmit-break",
	CmdVerify:         "verify",
	CmdFormat:         "format",
	CmdCatalog:        "catalog",
	CmdReset:          "reset",
}

func (c Command) String() string {
	if n, ok := commandNames[c]; ok {
		return n
	}
	return fmt.Sprintf("cmd(0x%02x)", uint8(c))
}
