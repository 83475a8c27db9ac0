// Copyright (C) MongoDB, Inc. 2014-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package password reads a connection password from the terminal, or from
// standard input when it is not a terminal.
package password

import (
	"fmt"
	"io"
	"os"

	"github.com/go-chive/chive-tools/common/log"
	"golang.org/x/term"
)

// key constants
const (
	backspaceKey      = 8
	deleteKey         = 127
	etxKey            = 3
	eotKey            = 4
	newLineKey        = 10
	carriageReturnKey = 13
)

// IsTerminal reports whether standard input is attached to a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Prompt displays a prompt on stderr asking for the password of the given
// user and returns what was entered.
func Prompt(what string) (string, error) {
	var pass string
	var err error

	fmt.Fprintf(os.Stderr, "Enter password for %s:", what)
	if IsTerminal() {
		log.Logv(log.DebugLow, "standard input is a terminal; reading password from terminal")
		var raw []byte
		raw, err = term.ReadPassword(int(os.Stdin.Fd()))
		pass = string(raw)
	} else {
		log.Logv(log.Always, "reading password from standard input")
		pass, err = readPassNonInteractively(os.Stdin)
	}
	if err != nil {
		return "", err
	}
	fmt.Fprintln(os.Stderr)
	return pass, nil
}

// readPassNonInteractively reads a single line from the reader, honouring
// backspace and delete, one byte at a time so nothing past the line is
// consumed.
func readPassNonInteractively(reader io.Reader) (string, error) {
	pass := []byte{}
	var chBuf [1]byte
	for {
		n, err := reader.Read(chBuf[:])
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if n == 0 {
			break
		}

		switch ch := chBuf[0]; ch {
		case backspaceKey, deleteKey:
			if len(pass) > 0 {
				pass = pass[:len(pass)-1]
			}
		case carriageReturnKey, newLineKey, etxKey, eotKey:
			return string(pass), nil
		case 0:
		default:
			pass = append(pass, ch)
		}
	}
	return string(pass), nil
}
