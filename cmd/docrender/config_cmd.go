package main

import (
	"fmt"

	"github.com/docrender/go-docrender/internal/yamlutil"
)

// runConfigCmd prints the effective configuration as YAML.
func runConfigCmd(args []string, env *Environment) int {
	flags, err := parseConfigFlags(args, env.Stderr)
	if err != nil {
		if code := flagExitCode(err); code != ExitSuccess {
			fmt.Fprintln(env.Stderr, err)
			return code
		}
		return ExitSuccess
	}

	cfg, err := loadSettings(*flags, env)
	if err != nil {
		fmt.Fprintln(env.Stderr, err)
		return exitCodeFor(err)
	}

	out, err := yamlutil.Marshal(cfg)
	if err != nil {
		fmt.Fprintln(env.Stderr, err)
		return ExitGeneral
	}
	_, _ = env.Stdout.Write(out)
	return ExitSuccess
}
