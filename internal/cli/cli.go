package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandRun       Command = "run"
	CommandStatus    Command = "status"
	CommandTrigger   Command = "trigger"
	CommandQuit      Command = "quit"
	CommandDevices   Command = "devices"
	CommandDoctor    Command = "doctor"
	CommandCalibrate Command = "calibrate"
	CommandVersion   Command = "version"
	CommandHelp      Command = "help"
)

// commandArity is the number of positional arguments each command takes.
var commandArity = map[Command]int{
	CommandRun:       0,
	CommandStatus:    0,
	CommandTrigger:   0,
	CommandQuit:      0,
	CommandDevices:   0,
	CommandDoctor:    0,
	CommandCalibrate: 1,
	CommandVersion:   0,
	CommandHelp:      0,
}

type Parsed struct {
	Command    Command
	ConfigPath string
	Args       []string
	ShowHelp   bool
}

// Parse reads `[--config PATH] [command [args]]`. No command means run.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandRun}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			arity, ok := commandArity[cmd]
			if !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			rest := args[i+1:]
			if len(rest) < arity {
				return Parsed{}, fmt.Errorf("command %q requires %d argument(s)", arg, arity)
			}
			if len(rest) > arity {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}

			parsed.Command = cmd
			parsed.Args = append([]string(nil), rest...)
			parsed.ShowHelp = cmd == CommandHelp
			return parsed, nil
		}
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [command]

Commands:
  run              Show the cat overlay (default)
  status           Print the running overlay's state
  trigger          Make the running overlay tap once
  quit             Close the running overlay
  devices          List audio output sinks usable for sound mode
  doctor           Run settings and environment checks
  calibrate FILE   Replay a wav/mp3/flac file through the loudness trigger
  version          Print version information
  help             Show this help

Flags:
  --config PATH   Settings file path (default: $XDG_CONFIG_HOME/bingocat/settings.json)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
