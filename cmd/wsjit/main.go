// This file is part of wsjit.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command wsjit JIT-compiles and runs a Whitespace source file.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"wsjit/vm"
)

var debug = flag.Bool("debug", false, "print the parsed instruction list before running")

func atExit(err error) {
	if err == nil {
		return
	}
	if *debug {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
	} else {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(1)
}

func run() error {
	flag.Parse()
	if flag.NArg() != 1 {
		return errors.Errorf("usage: %s [-debug] <source-file>", os.Args[0])
	}

	src, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		return errors.Wrap(err, "wsjit: read source")
	}

	ctx, err := vm.New(vm.Logger(logrus.StandardLogger()))
	if err != nil {
		return errors.Wrap(err, "wsjit: construct context")
	}

	exe, err := vm.Compile(src, ctx)
	if err != nil {
		return err
	}
	defer exe.Release()

	if *debug {
		if err := vm.Disassemble(exe.Program(), os.Stderr); err != nil {
			return errors.Wrap(err, "wsjit: disassemble")
		}
	}

	return exe.Run()
}

func main() {
	atExit(run())
}
