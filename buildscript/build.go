// Copyright (C) MongoDB, Inc. 2014-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package buildscript holds the goke tasks that build and test the tools.
package buildscript

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/craiggwilson/goke/pkg/git"
	"github.com/craiggwilson/goke/pkg/sh"
	"github.com/craiggwilson/goke/task"
	"github.com/go-chive/chive-tools/common/testtype"
)

// toolNames lists the packages with a main/<name>.go entry point.
var toolNames = []string{"chiverestore"}

// pkgNames is a list of the names of all the packages to test.
var pkgNames = []string{"chiverestore", "common"}

// BuildTools is an Executor that builds the tools into bin/.
func BuildTools(ctx *task.Context) error {
	for _, tool := range selected(ctx, "tools", toolNames) {
		if err := buildToolBinary(ctx, tool, "bin"); err != nil {
			return err
		}
	}
	return nil
}

// TestUnit is an Executor that runs all unit tests for the provided packages.
func TestUnit(ctx *task.Context) error {
	return runTests(ctx, selected(ctx, "pkgs", pkgNames), testtype.UnitTestType)
}

// TestIntegration is an Executor that runs all integration tests for the
// provided packages. A mongod must be listening on the test port.
func TestIntegration(ctx *task.Context) error {
	return runTests(ctx, selected(ctx, "pkgs", pkgNames), testtype.IntegrationTestType)
}

func buildToolBinary(ctx *task.Context, tool string, outDir string) error {
	outPath := filepath.Join(outDir, tool)
	if runtime.GOOS == "windows" {
		outPath += ".exe"
	}
	_ = sh.Remove(ctx, outPath)

	ldflags, err := getLdflags(ctx)
	if err != nil {
		return fmt.Errorf("failed to get ldflags: %w", err)
	}

	mainFile := filepath.Join(tool, "main", tool+".go")
	cmd := exec.CommandContext(ctx, "go", "build", "-o", outPath, "-ldflags", ldflags, mainFile)
	sh.LogCmd(ctx, cmd)
	output, err := cmd.CombinedOutput()
	if len(output) > 0 {
		_, _ = ctx.Write(output)
	}
	if err != nil {
		return fmt.Errorf("failed to build %s: %w", tool, err)
	}
	return nil
}

// runTests runs the tests of the provided testType for the provided packages,
// teeing the output into testing_output/<pkg>.suite.
func runTests(ctx *task.Context, pkgs []string, testType string) error {
	for _, pkg := range pkgs {
		outFile, err := sh.CreateFileR(ctx, fmt.Sprintf("testing_output/%s.suite", pkg))
		if err != nil {
			return fmt.Errorf("failed to create testing output file: %w", err)
		}

		args := []string{"test", "./" + pkg + "/..."}
		if ctx.Verbose {
			args = append(args, "-v")
		}

		env := append([]string{}, os.Environ()...)
		env = append(env, testType+"=true")
		if testType != testtype.UnitTestType {
			// only run the requested kind
			env = append(env, testtype.UnitTestType+"=false")
		}

		out := io.MultiWriter(ctx, outFile)
		cmd := exec.CommandContext(ctx, "go", args...)
		cmd.Stdout = out
		cmd.Stderr = out
		cmd.Env = env

		err = sh.RunCmd(ctx, cmd)
		outFile.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func getLdflags(ctx *task.Context) (string, error) {
	versionStr := ctx.Get("version")
	if versionStr == "" {
		described, err := runCmd(ctx, "git", "describe", "--tags", "--always")
		if err != nil {
			return "", fmt.Errorf("failed to get current version: %w", err)
		}
		versionStr = described
	}

	gitCommit, err := git.SHA1(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get git commit hash: %w", err)
	}

	return fmt.Sprintf("-X main.VersionStr=%s -X main.GitCommit=%s", versionStr, gitCommit), nil
}

func runCmd(ctx *task.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	sh.LogCmd(ctx, cmd)
	output, err := cmd.CombinedOutput()
	return string(bytes.TrimSpace(output)), err
}

// selected splits the comma separated task argument, falling back to all.
func selected(ctx *task.Context, arg string, all []string) []string {
	if v := ctx.Get(arg); v != "" {
		return strings.Split(v, ",")
	}
	return all
}
