// Package cli parses the stonedeck command line: the flags the Stream Deck
// application launches the plugin with, plus operator commands.
package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Command string

const (
	CommandRun       Command = "run"
	CommandSFX       Command = "sfx"
	CommandCampaigns Command = "campaigns"
	CommandScenes    Command = "scenes"
	CommandPlay      Command = "play"
	CommandStatus    Command = "status"
	CommandDoctor    Command = "doctor"
	CommandVersion   Command = "version"
	CommandHelp      Command = "help"
)

// commandArity is how many positional arguments each command takes.
var commandArity = map[Command]int{
	CommandRun:       0,
	CommandSFX:       0,
	CommandCampaigns: 0,
	CommandScenes:    1,
	CommandPlay:      1,
	CommandStatus:    0,
	CommandDoctor:    0,
	CommandVersion:   0,
	CommandHelp:      0,
}

// HostFlags are the arguments the Stream Deck application passes on launch.
type HostFlags struct {
	Port          int
	PluginUUID    string
	RegisterEvent string
	Info          string
}

// Set reports whether any host flag was given.
func (h HostFlags) Set() bool {
	return h.Port != 0 || h.PluginUUID != "" || h.RegisterEvent != "" || h.Info != ""
}

type Parsed struct {
	Command    Command
	Args       []string
	ConfigPath string
	ShowHelp   bool
	Host       HostFlags
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}
	explicit := false

	for i := 0; i < len(args); i++ {
		arg := args[i]

		value := func() (string, error) {
			i++
			if i >= len(args) {
				return "", fmt.Errorf("%s requires a value", arg)
			}
			return args[i], nil
		}

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
			explicit = true
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
			explicit = true
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		case "-port", "--port":
			raw, err := value()
			if err != nil {
				return Parsed{}, err
			}
			port, err := strconv.Atoi(raw)
			if err != nil || port <= 0 || port > 65535 {
				return Parsed{}, fmt.Errorf("invalid %s value %q", arg, raw)
			}
			parsed.Host.Port = port
		case "-pluginUUID", "--pluginUUID":
			raw, err := value()
			if err != nil {
				return Parsed{}, err
			}
			parsed.Host.PluginUUID = raw
		case "-registerEvent", "--registerEvent":
			raw, err := value()
			if err != nil {
				return Parsed{}, err
			}
			parsed.Host.RegisterEvent = raw
		case "-info", "--info":
			raw, err := value()
			if err != nil {
				return Parsed{}, err
			}
			parsed.Host.Info = raw
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
			if len(rest) != arity {
				if arity == 0 {
					return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
				}
				return Parsed{}, fmt.Errorf("command %q takes %d argument(s), got %d", arg, arity, len(rest))
			}

			parsed.Command = cmd
			parsed.Args = append([]string(nil), rest...)
			parsed.ShowHelp = cmd == CommandHelp
			explicit = true
			i = len(args)
		}
	}

	// The host launches the binary with only its own flags.
	if !explicit && parsed.Host.Set() {
		parsed.Command = CommandRun
		parsed.ShowHelp = false
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command> [args]
  %[1]s -port PORT -pluginUUID UUID -registerEvent EVENT -info JSON

Commands:
  run                  Connect to the Stream Deck application (implied by host flags)
  sfx                  List sound effects known to Summoning Stone
  campaigns            List campaigns
  scenes CAMPAIGN_ID   List scenes in a campaign
  play NAME            Play one sound effect
  status               Print the running plugin's state
  doctor               Run configuration and connectivity checks
  version              Print version information
  help                 Show this help

Flags:
  --config PATH        Config file path (default: $XDG_CONFIG_HOME/stonedeck/config.jsonc)
  -h, --help           Show help
  --version            Show version
`, binaryName)
}
