package install

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ServerName is the key the server is registered under in agent configs.
const ServerName = "vector-memory"

// ErrUnknownAgent is returned for an agent id that has no installer.
var ErrUnknownAgent = errors.New("unknown agent")

// Agent describes how to register the server with one AI agent.
type Agent struct {
	ID   string
	Name string

	install   func(env Env) error
	uninstall func(env Env) error
}

// Env is what an installer needs from its surroundings.
type Env struct {
	// Home is the user's home directory.
	Home string
	// Binary is the command agents run to start the server.
	Binary string
	// Out receives progress messages.
	Out io.Writer
	// Run executes an external command.
	Run func(name string, args ...string) error
}

// DefaultEnv returns an Env for the current user and executable.
func DefaultEnv(out io.Writer) Env {
	home, _ := os.UserHomeDir()
	bin := "vecmem"
	if exe, err := os.Executable(); err == nil {
		bin = exe
	}
	return Env{
		Home:   home,
		Binary: bin,
		Out:    out,
		Run: func(name string, args ...string) error {
			cmd := exec.Command(name, args...)
			cmd.Stdout = out
			cmd.Stderr = out
			return cmd.Run()
		},
	}
}

var agents = map[string]Agent{
	"claude-code": {
		ID:   "claude-code",
		Name: "Claude Code",
		install: func(env Env) error {
			return setJSONEntry(ClaudeCodeConfigPath(env.Home), "mcpServers", map[string]any{
				"command": env.Binary,
				"args":    []string{"serve"},
			})
		},
		uninstall: func(env Env) error {
			return deleteJSONEntry(ClaudeCodeConfigPath(env.Home), "mcpServers")
		},
	},
	"opencode": {
		ID:   "opencode",
		Name: "OpenCode",
		install: func(env Env) error {
			return setJSONEntry(OpenCodeConfigPath(env.Home), "mcp", map[string]any{
				"type":    "local",
				"command": []string{env.Binary, "serve"},
				"enabled": true,
			})
		},
		uninstall: func(env Env) error {
			return deleteJSONEntry(OpenCodeConfigPath(env.Home), "mcp")
		},
	},
	"codex": {
		ID:        "codex",
		Name:      "Codex",
		install:   codexInstall,
		uninstall: codexUninstall,
	},
}

// Agents returns the supported agents sorted by id.
func Agents() []Agent {
	out := make([]Agent, 0, len(agents))
	for _, a := range agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AgentIDs returns the ids accepted by Install and Uninstall.
func AgentIDs() []string {
	var ids []string
	for _, a := range Agents() {
		ids = append(ids, a.ID)
	}
	return ids
}

func lookup(id string) (Agent, error) {
	a, ok := agents[strings.ToLower(id)]
	if !ok {
		return Agent{}, fmt.Errorf("%w: %s (supported: %s)", ErrUnknownAgent, id, strings.Join(AgentIDs(), ", "))
	}
	return a, nil
}

// Install registers the server with the agent.
func Install(id string, env Env) error {
	a, err := lookup(id)
	if err != nil {
		return err
	}
	if err := a.install(env); err != nil {
		return err
	}

	fmt.Fprintf(env.Out, "Installed %s into %s\n", ServerName, a.Name)
	fmt.Fprintf(env.Out, "Restart %s to load the memory tools. To remove them: vecmem uninstall %s\n", a.Name, a.ID)
	return nil
}

// Uninstall removes the server from the agent.
func Uninstall(id string, env Env) error {
	a, err := lookup(id)
	if err != nil {
		return err
	}
	if err := a.uninstall(env); err != nil {
		return err
	}

	fmt.Fprintf(env.Out, "Uninstalled %s from %s\n", ServerName, a.Name)
	return nil
}

// ClaudeCodeConfigPath returns the path to the Claude Code config file.
func ClaudeCodeConfigPath(home string) string {
	return filepath.Join(home, ".claude.json")
}

// OpenCodeConfigPath returns the OpenCode config file, preferring an existing
// .jsonc file over the .json default.
func OpenCodeConfigPath(home string) string {
	jsonPath := filepath.Join(home, ".config", "opencode", "opencode.json")
	jsoncPath := filepath.Join(home, ".config", "opencode", "opencode.jsonc")

	if _, err := os.Stat(jsonPath); err == nil {
		return jsonPath
	}
	if _, err := os.Stat(jsoncPath); err == nil {
		return jsoncPath
	}
	return jsonPath
}

// CodexAgentsPath returns the path to the Codex AGENTS.md file.
func CodexAgentsPath(home string) string {
	return filepath.Join(home, ".codex", "AGENTS.md")
}

// setJSONEntry sets section.ServerName in the JSON file at path, keeping the
// rest of the document as it is.
func setJSONEntry(path, section string, entry any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		data = []byte("{}")
	}
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("failed to parse existing config: %s", path)
	}

	data, err = sjson.SetBytes(data, section+"."+ServerName, entry)
	if err != nil {
		return fmt.Errorf("failed to update config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// deleteJSONEntry removes section.ServerName from the JSON file at path.
func deleteJSONEntry(path, section string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}

	key := section + "." + ServerName
	if !gjson.GetBytes(data, key).Exists() {
		return nil
	}

	data, err = sjson.DeleteBytes(data, key)
	if err != nil {
		return fmt.Errorf("failed to update config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func codexInstall(env Env) error {
	if err := env.Run("codex", "mcp", "add", ServerName, "--", env.Binary, "serve"); err != nil {
		return fmt.Errorf("failed to add MCP server (is codex installed?): %w", err)
	}

	agentsPath := CodexAgentsPath(env.Home)
	if err := os.MkdirAll(filepath.Dir(agentsPath), 0755); err != nil {
		return fmt.Errorf("failed to create .codex directory: %w", err)
	}

	existing, _ := os.ReadFile(agentsPath)
	if strings.Contains(string(existing), "name: "+ServerName) {
		return nil
	}

	f, err := os.OpenFile(agentsPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open AGENTS.md: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(SkillMarkdown); err != nil {
		return fmt.Errorf("failed to write skill to AGENTS.md: %w", err)
	}
	return nil
}

func codexUninstall(env Env) error {
	if err := env.Run("codex", "mcp", "remove", ServerName); err != nil {
		fmt.Fprintf(env.Out, "Note: failed to remove MCP server: %v\n", err)
	}

	agentsPath := CodexAgentsPath(env.Home)
	data, err := os.ReadFile(agentsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read AGENTS.md: %w", err)
	}

	content := strings.ReplaceAll(string(data), SkillMarkdown, "")
	content = strings.ReplaceAll(content, strings.TrimSpace(SkillMarkdown), "")
	for strings.Contains(content, "\n\n\n") {
		content = strings.ReplaceAll(content, "\n\n\n", "\n\n")
	}
	content = strings.TrimSpace(content)

	if content == "" {
		if err := os.Remove(agentsPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove empty AGENTS.md: %w", err)
		}
		return nil
	}
	if err := os.WriteFile(agentsPath, []byte(content+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write AGENTS.md: %w", err)
	}
	return nil
}
