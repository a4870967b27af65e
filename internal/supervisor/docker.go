package supervisor

import (
	"sort"

	"toolman/internal/config"
)

// launchArgv builds the command line that attaches a tool over stdio.
// Subprocess tools launch their configured command directly. Container
// tools are wrapped in an interactive "docker run" so the container's
// stdin and stdout become the protocol streams.
func launchArgv(def config.ToolDefinition, settings config.Settings) []string {
	if def.Type != config.ToolTypeContainer {
		argv := make([]string, 0, len(def.Command)+len(def.Args))
		argv = append(argv, def.Command...)
		argv = append(argv, def.Args...)
		return stripRemoveFlag(argv)
	}

	argv := []string{"docker", "run", "-i"}

	if settings.DockerNetwork != "" {
		argv = append(argv, "--network", settings.DockerNetwork)
	}

	// Deterministic env ordering keeps launch commands stable across runs.
	keys := make([]string, 0, len(def.Env))
	for k := range def.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		argv = append(argv, "-e", k+"="+def.Env[k])
	}

	argv = append(argv, def.Image)
	argv = append(argv, def.Args...)
	return argv
}

// stripRemoveFlag drops --rm from configured docker invocations. Those
// flags assume one-shot runs; the supervisor keeps the container attached
// for the life of the session and cleans up on shutdown.
func stripRemoveFlag(argv []string) []string {
	if len(argv) == 0 || argv[0] != "docker" {
		return argv
	}
	out := argv[:0:0]
	for _, a := range argv {
		if a == "--rm" {
			continue
		}
		out = append(out, a)
	}
	return out
}
