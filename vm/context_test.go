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

package vm_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"wsjit/vm"
)

func TestNewContextDefaults(t *testing.T) {
	ctx, err := vm.New()
	if err != nil {
		t.Fatal(err)
	}
	if len(ctx.Stack()) != 0 {
		t.Fatalf("Stack() = %v, want empty", ctx.Stack())
	}
	if len(ctx.Heap()) != 0 {
		t.Fatalf("Heap() = %v, want empty", ctx.Heap())
	}
}

func TestContextStdoutOption(t *testing.T) {
	var out bytes.Buffer
	ctx, err := vm.New(vm.Stdout(&out))
	if err != nil {
		t.Fatal(err)
	}
	_ = ctx
	// Nothing to assert directly without exercising the JIT path; this
	// confirms the option is accepted and Context construction succeeds.
}

func TestContextStdinOption(t *testing.T) {
	ctx, err := vm.New(vm.Stdin(strings.NewReader("42\n")))
	if err != nil {
		t.Fatal(err)
	}
	_ = ctx
}

func TestContextLoggerOption(t *testing.T) {
	l := logrus.New()
	l.SetOutput(&bytes.Buffer{})
	ctx, err := vm.New(vm.Logger(l))
	if err != nil {
		t.Fatal(err)
	}
	_ = ctx
}

func TestContextHeapCapacityHintOption(t *testing.T) {
	ctx, err := vm.New(vm.HeapCapacityHint(128))
	if err != nil {
		t.Fatal(err)
	}
	if len(ctx.Heap()) != 0 {
		t.Fatalf("Heap() = %v, want empty", ctx.Heap())
	}
}

func TestContextHeapCapacityHintNegativeClampsToZero(t *testing.T) {
	ctx, err := vm.New(vm.HeapCapacityHint(-5))
	if err != nil {
		t.Fatal(err)
	}
	if len(ctx.Heap()) != 0 {
		t.Fatalf("Heap() = %v, want empty", ctx.Heap())
	}
}

func TestContextStackCapacityHintOption(t *testing.T) {
	ctx, err := vm.New(vm.StackCapacityHint(8))
	if err != nil {
		t.Fatal(err)
	}
	if len(ctx.Stack()) != 0 {
		t.Fatalf("Stack() = %v, want empty", ctx.Stack())
	}
}

func TestContextStackCapacityHintClampsBelowOne(t *testing.T) {
	ctx, err := vm.New(vm.StackCapacityHint(-5))
	if err != nil {
		t.Fatal(err)
	}
	if len(ctx.Stack()) != 0 {
		t.Fatalf("Stack() = %v, want empty", ctx.Stack())
	}
}

func TestContextHeapSnapshotIsIndependent(t *testing.T) {
	ctx, err := vm.New()
	if err != nil {
		t.Fatal(err)
	}
	snap := ctx.Heap()
	snap[1] = 99
	if _, ok := ctx.Heap()[1]; ok {
		t.Fatal("mutating a Heap() snapshot should not affect the Context")
	}
}
