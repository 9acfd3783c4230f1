package doctor

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rileyhilliard/cloudctl/internal/config"
	"github.com/rileyhilliard/cloudctl/internal/errors"
	"github.com/rileyhilliard/cloudctl/internal/exec"
	"github.com/rileyhilliard/cloudctl/internal/keychain"
	"github.com/rileyhilliard/cloudctl/internal/sshkey"
	"golang.org/x/crypto/ssh/agent"
)

// ConfigCheck loads and validates the config that commands would use.
type ConfigCheck struct {
	Explicit string // --config value, or empty to search
}

func (c *ConfigCheck) Name() string     { return "config" }
func (c *ConfigCheck) Category() string { return "CONFIG" }

func (c *ConfigCheck) Run(_ context.Context) CheckResult {
	cfg, err := config.LoadOrDefault(c.Explicit)
	if err == nil {
		err = config.Validate(cfg)
	}
	if err != nil {
		return fail(c, "Config is invalid", suggestionOf(err))
	}
	if cfg.Path == "" {
		return pass(c, "No config file, using defaults")
	}
	return pass(c, "Config file: "+cfg.Path)
}

// LinkCheck reports whether an application is linked.
type LinkCheck struct {
	Application string
}

func (c *LinkCheck) Name() string     { return "application" }
func (c *LinkCheck) Category() string { return "CONFIG" }

func (c *LinkCheck) Run(_ context.Context) CheckResult {
	if c.Application == "" {
		return warn(c, "No application linked",
			"Run 'cloudctl app:link' so commands know which application to use")
	}
	return pass(c, "Linked application: "+c.Application)
}

// ToolsCheck verifies the local binaries key creation shells out to.
type ToolsCheck struct {
	Runner exec.Runner
	Method string
}

func (c *ToolsCheck) Name() string     { return "tools" }
func (c *ToolsCheck) Category() string { return "TOOLS" }

func (c *ToolsCheck) Run(_ context.Context) CheckResult {
	tools := []string{"ssh-keygen"}
	if c.Method != keychain.MethodAgent {
		tools = append(tools, "ssh-add")
	}
	if err := exec.RequireBinaries(c.Runner, tools...); err != nil {
		return fail(c, messageOf(err), "Install the OpenSSH client tools")
	}
	return pass(c, "Found "+strings.Join(tools, ", "))
}

// SSHDirCheck verifies the key directory and counts its public keys.
type SSHDirCheck struct {
	Dir string
}

func (c *SSHDirCheck) Name() string     { return "ssh_dir" }
func (c *SSHDirCheck) Category() string { return "SSH" }

func (c *SSHDirCheck) Run(_ context.Context) CheckResult {
	info, err := os.Stat(c.Dir)
	if err != nil || !info.IsDir() {
		return fail(c, "SSH directory not found: "+c.Dir,
			"Create it with: mkdir -m 700 "+c.Dir)
	}
	keys, err := sshkey.FindPublicKeys(c.Dir)
	if err != nil {
		return fail(c, messageOf(err), suggestionOf(err))
	}
	if len(keys) == 0 {
		return warn(c, "No public keys in "+c.Dir, "Create one with: cloudctl ssh-key:create")
	}
	return pass(c, fmt.Sprintf("%d public key%s in %s", len(keys), pluralize(len(keys)), c.Dir))
}

// AgentCheck reports whether an SSH agent is reachable and what it holds.
type AgentCheck struct {
	Agent  agent.Agent // nil when no agent socket is reachable
	Method string
}

func (c *AgentCheck) Name() string     { return "ssh_agent" }
func (c *AgentCheck) Category() string { return "SSH" }

func (c *AgentCheck) Run(_ context.Context) CheckResult {
	if c.Agent == nil {
		if c.Method == keychain.MethodAgent {
			return fail(c, "SSH agent not running",
				"Fix: eval $(ssh-agent), or set keychain.method to auto")
		}
		return warn(c, "SSH agent not running, new keys will be added with ssh-add",
			"Fix: eval $(ssh-agent)")
	}
	keys, err := c.Agent.List()
	if err != nil {
		return fail(c, "Cannot query SSH agent", "Check SSH agent: ssh-add -l")
	}
	if len(keys) == 0 {
		return warn(c, "SSH agent running but no keys loaded", "Add a key with: cloudctl ssh-key:create")
	}
	return pass(c, fmt.Sprintf("SSH agent holds %d key%s", len(keys), pluralize(len(keys))))
}

func messageOf(err error) string {
	var e *errors.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

func suggestionOf(err error) string {
	var e *errors.Error
	if errors.As(err, &e) {
		return e.Suggestion
	}
	return ""
}
