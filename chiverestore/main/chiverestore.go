// Copyright (C) MongoDB, Inc. 2014-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Main package for the chiverestore tool.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chive/chive-tools/chiverestore"
	"github.com/go-chive/chive-tools/common/log"
	"github.com/go-chive/chive-tools/common/password"
	"github.com/go-chive/chive-tools/common/util"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

var (
	VersionStr = "built-without-version-string"
	GitCommit  = "build-without-git-commit"
)

func main() {
	opts, err := chiverestore.ParseOptions(os.Args[1:], VersionStr, GitCommit)
	if err != nil {
		log.Logvf(log.Always, "error parsing command line options: %v", err)
		log.Logvf(log.Always, util.ShortUsage("chiverestore"))
		os.Exit(util.ExitBadOptions)
	}

	// print help or version info, if specified
	if opts.PrintHelp(false) {
		return
	}
	if opts.PrintVersion() {
		return
	}

	log.SetVerbosity(opts.Verbosity)
	log.SetWriter(os.Stdout)

	if err := opts.Validate(); err != nil {
		log.Logvf(log.Always, "error validating settings: %v", err)
		log.Logvf(log.Always, util.ShortUsage("chiverestore"))
		os.Exit(util.ExitBadOptions)
	}

	if opts.ShouldAskForPassword() {
		user := opts.Auth.Username
		if user == "" {
			if cs, err := connstring.Parse(opts.URI.ConnectionString); err == nil {
				user = cs.Username
			}
		}
		pass, err := password.Prompt(user)
		if err != nil {
			log.Logvf(log.Always, "error reading password: %v", err)
			os.Exit(util.ExitFailure)
		}
		opts.Auth.Password = pass
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	restore, err := chiverestore.New(ctx, opts)
	if err != nil {
		log.Logvf(log.Always, "Failed: %v", err)
		os.Exit(util.ExitFailure)
	}
	defer restore.Close()

	_, err = restore.Restore(ctx)
	switch {
	case errors.Is(err, util.ErrTerminated):
		log.Logvf(log.Always, "Failed: %v", err)
		restore.Close()
		os.Exit(util.ExitKill)
	case err != nil:
		log.Logvf(log.Always, "Failed: %v", err)
		restore.Close()
		os.Exit(util.ExitFailure)
	}
}
